package seed

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/internlink/backend/internal/gamification"
	"github.com/internlink/backend/internal/logger"
)

// DemoUserID is the learner the generator acts as unless told otherwise.
var DemoUserID = uuid.MustParse("00000000-0000-4000-8000-00000000d3e0")

const progressStep = 25

// Generator plays a learner through the catalog: logging in, working
// through courses in steps and submitting the odd application. It drives
// the same engine paths the API does, so every toast reaches connected
// sockets.
type Generator struct {
	engine  *gamification.Engine
	courses *gamification.CourseService
	catalog []gamification.Course
	userID  uuid.UUID
	rng     *rand.Rand
	log     *logger.Logger

	steps    int
	progress map[uuid.UUID]int
}

func NewGenerator(engine *gamification.Engine, courses *gamification.CourseService, catalog []gamification.Course, userID uuid.UUID, seed int64, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	if userID == uuid.Nil {
		userID = DemoUserID
	}
	return &Generator{
		engine:   engine,
		courses:  courses,
		catalog:  catalog,
		userID:   userID,
		rng:      rand.New(rand.NewSource(seed)),
		log:      log.With("component", "seed", "user_id", userID),
		progress: make(map[uuid.UUID]int),
	}
}

func (g *Generator) UserID() uuid.UUID { return g.userID }

// Backfill runs n steps back to back.
func (g *Generator) Backfill(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := g.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Start steps once per interval until ctx is done. Errors are logged and
// the loop keeps going.
func (g *Generator) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := g.Step(ctx); err != nil {
					g.log.Warn("demo step failed", "error", err)
				}
			}
		}
	}()
}

// Step performs one learner action.
func (g *Generator) Step(ctx context.Context) error {
	defer func() { g.steps++ }()

	if g.steps == 0 {
		_, err := g.engine.AwardDirectXP(ctx, g.userID, g.engine.XPFor(gamification.ActivityProfileCompleted),
			gamification.ActivityProfileCompleted, "Completed profile")
		return err
	}

	switch roll := g.rng.Intn(10); {
	case roll < 2:
		return g.login(ctx)
	case roll == 2:
		_, err := g.engine.AwardDirectXP(ctx, g.userID, g.engine.XPFor(gamification.ActivityApplicationSubmitted),
			gamification.ActivityApplicationSubmitted, "Submitted internship application")
		return err
	default:
		return g.study(ctx)
	}
}

func (g *Generator) login(ctx context.Context) error {
	_, err := g.engine.AwardDirectXP(ctx, g.userID, g.engine.XPFor(gamification.ActivityDailyLogin),
		gamification.ActivityDailyLogin, "Daily login")
	return err
}

// study advances the first unfinished course, starting it if needed. With
// nothing left to study the learner just logs in.
func (g *Generator) study(ctx context.Context) error {
	for _, c := range g.catalog {
		pct, started := g.progress[c.ID]
		if pct >= 100 {
			continue
		}
		if !started {
			if _, err := g.courses.StartCourse(ctx, g.userID, c.ID); err != nil {
				return err
			}
			g.progress[c.ID] = 0
			return nil
		}
		next := pct + progressStep
		if next > 100 {
			next = 100
		}
		if _, err := g.courses.UpdateProgress(ctx, g.userID, c.ID, next); err != nil {
			return err
		}
		g.progress[c.ID] = next
		return nil
	}
	return g.login(ctx)
}
