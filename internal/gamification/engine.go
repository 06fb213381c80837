package gamification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/internlink/backend/internal/logger"
)

const tracerName = "github.com/internlink/backend/internal/gamification"

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

// AwardResult is the state after a successful award. Callers render it
// directly; no follow-up read is needed.
type AwardResult struct {
	Activity    XPActivity      `json:"activity"`
	Previous    UserProgression `json:"previous"`
	Progression UserProgression `json:"progression"`
	LeveledUp   bool            `json:"leveled_up"`
	NewBadges   []Badge         `json:"new_badges"`
	ProgressPct float64         `json:"progress_pct"`
	XPToNext    int             `json:"xp_to_next"`
}

// ProgressionView is a user's progression with everything derived from it.
type ProgressionView struct {
	Progression UserProgression `json:"progression"`
	Badges      []Badge         `json:"badges"`
	ProgressPct float64         `json:"progress_pct"`
	XPToNext    int             `json:"xp_to_next"`
	NextLevel   *LevelThreshold `json:"next_level,omitempty"`
}

// Engine is the only path through which XP changes. Every award appends one
// ledger entry and re-derives the user's progression from the whole ledger
// in the same transaction.
type Engine struct {
	store      Store
	levels     *LevelTable
	badges     *BadgeEngine
	notifier   Notifier
	log        *logger.Logger
	now        func() time.Time
	tracer     trace.Tracer
	weeklyGoal int
	xp         map[ActivityType]int

	users *keyMutex
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

func WithLevelTable(t *LevelTable) EngineOption { return func(e *Engine) { e.levels = t } }

func WithBadgeEngine(b *BadgeEngine) EngineOption { return func(e *Engine) { e.badges = b } }

func WithNotifier(n Notifier) EngineOption { return func(e *Engine) { e.notifier = n } }

func WithLogger(l *logger.Logger) EngineOption { return func(e *Engine) { e.log = l } }

func WithClock(now func() time.Time) EngineOption { return func(e *Engine) { e.now = now } }

func WithTracer(t trace.Tracer) EngineOption { return func(e *Engine) { e.tracer = t } }

func WithWeeklyGoal(goal int) EngineOption {
	return func(e *Engine) {
		if goal > 0 {
			e.weeklyGoal = goal
		}
	}
}

// WithXPAmounts overrides the XP awarded per activity type. Non-positive
// amounts are ignored.
func WithXPAmounts(amounts map[ActivityType]int) EngineOption {
	return func(e *Engine) {
		for t, n := range amounts {
			if n > 0 {
				e.xp[t] = n
			}
		}
	}
}

// NewEngine creates an engine over store with the default level table,
// badge set and weekly goal.
func NewEngine(store Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:      store,
		levels:     DefaultLevelTable(),
		badges:     DefaultBadgeEngine(),
		notifier:   NopNotifier{},
		log:        logger.Nop(),
		now:        time.Now,
		tracer:     otel.Tracer(tracerName),
		weeklyGoal: DefaultWeeklyGoal,
		xp:         DefaultXP(),
		users:      newKeyMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "gamification")
	return e
}

// Levels returns the level table in use.
func (e *Engine) Levels() *LevelTable { return e.levels }

// XPFor returns the configured XP amount for an activity type.
func (e *Engine) XPFor(t ActivityType) int { return e.xp[t] }

func validateAward(userID uuid.UUID, amount int, t ActivityType, description string) error {
	if userID == uuid.Nil {
		return invalid("user_id", ErrInvalidUser)
	}
	if amount <= 0 {
		return invalid("amount", ErrNonPositiveAmount)
	}
	if !t.Valid() {
		return invalid("activity_type", fmt.Errorf("%w: %q", ErrUnknownActivity, t))
	}
	if strings.TrimSpace(description) == "" {
		return invalid("description", ErrEmptyDescription)
	}
	return nil
}

// AwardXP records amount XP for userID and recomputes the user's level and
// badges atomically. Nothing is persisted or notified if validation or any
// store operation fails.
func (e *Engine) AwardXP(ctx context.Context, userID uuid.UUID, amount int, t ActivityType, description string) (*AwardResult, error) {
	if err := validateAward(userID, amount, t, description); err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "gamification.AwardXP", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("activity.type", string(t)),
		attribute.Int("xp.amount", amount),
	))
	defer span.End()

	var res *AwardResult
	err := e.withUser(userID, func() error {
		return e.store.WithinTx(ctx, func(tx Store) error {
			var err error
			res, err = e.awardTx(ctx, tx, userID, amount, t, description, nil)
			return err
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "award failed")
		e.log.Error("award xp failed", "user_id", userID, "activity_type", t, "error", err)
		return nil, persistErr("award xp", err)
	}

	span.SetAttributes(attribute.Int("xp.total", res.Progression.TotalXP), attribute.Bool("level.up", res.LeveledUp))
	e.log.Info("xp awarded", "user_id", userID, "activity_type", t, "amount", amount,
		"total_xp", res.Progression.TotalXP, "level", res.Progression.CurrentLevel, "new_badges", len(res.NewBadges))
	e.notifyAward(ctx, res)
	return res, nil
}

// AwardDirectXP is AwardXP for callers outside the course lifecycle, such
// as the public API. Course activity types are rejected so completion XP can
// only come from an admitted completion.
func (e *Engine) AwardDirectXP(ctx context.Context, userID uuid.UUID, amount int, t ActivityType, description string) (*AwardResult, error) {
	if t.CourseBound() {
		return nil, invalid("activity_type", fmt.Errorf("%w: %q", ErrCourseActivity, t))
	}
	return e.AwardXP(ctx, userID, amount, t, description)
}

// withUser runs fn holding the user's in-process key lock.
func (e *Engine) withUser(userID uuid.UUID, fn func() error) error {
	unlock := e.users.Lock(userID.String())
	defer unlock()
	return fn()
}

// lockProgression takes the user's progression row lock, creating the zero
// row first if needed. Every transaction that awards XP takes it before any
// other read so writers in other processes serialize on the same row.
func (e *Engine) lockProgression(ctx context.Context, tx Store, userID uuid.UUID, now time.Time) (*UserProgression, error) {
	initial := zeroProgression(userID, e.levels)
	initial.CreatedAt, initial.UpdatedAt = now, now
	p, err := tx.LockProgression(ctx, userID, initial)
	if err != nil {
		return nil, fmt.Errorf("lock progression: %w", err)
	}
	return p, nil
}

// awardTx performs one award against an open transaction. The caller must
// hold the user's key lock and notify only after the transaction commits.
func (e *Engine) awardTx(ctx context.Context, tx Store, userID uuid.UUID, amount int, t ActivityType, description string, subjectID *uuid.UUID) (*AwardResult, error) {
	now := e.now().UTC()

	prev, err := e.lockProgression(ctx, tx, userID, now)
	if err != nil {
		return nil, err
	}

	act := XPActivity{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        t,
		Description: description,
		XPEarned:    amount,
		SubjectID:   subjectID,
		OccurredAt:  now,
	}
	if err := tx.AppendActivity(ctx, &act); err != nil {
		return nil, fmt.Errorf("append activity: %w", err)
	}

	total, err := tx.SumXP(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sum xp: %w", err)
	}
	lvl := e.levels.LevelForXP(total)
	next := *prev
	next.TotalXP = total
	next.CurrentLevel = lvl.Level
	next.LevelName = lvl.Name
	next.UpdatedAt = now
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	if err := tx.SaveProgression(ctx, &next); err != nil {
		return nil, fmt.Errorf("save progression: %w", err)
	}

	badges, err := e.awardBadges(ctx, tx, next, t, now)
	if err != nil {
		return nil, err
	}

	return &AwardResult{
		Activity:    act,
		Previous:    *prev,
		Progression: next,
		LeveledUp:   next.CurrentLevel > prev.CurrentLevel,
		NewBadges:   badges,
		ProgressPct: e.levels.ProgressToNextLevel(total),
		XPToNext:    e.levels.XPToNextLevel(total),
	}, nil
}

func (e *Engine) awardBadges(ctx context.Context, tx Store, p UserProgression, t ActivityType, now time.Time) ([]Badge, error) {
	counts, err := tx.ActivityCounts(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("activity counts: %w", err)
	}
	streak, err := streakDays(ctx, tx, p.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("activity days: %w", err)
	}
	owned, err := tx.ListBadges(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	held := make(map[string]bool, len(owned))
	for _, b := range owned {
		held[b.Type] = true
	}

	bc := BadgeContext{
		TotalXP:        p.TotalXP,
		Level:          p.CurrentLevel,
		ActivityType:   t,
		ActivityCounts: counts,
		StreakDays:     streak,
	}
	var earned []Badge
	for _, r := range e.badges.Evaluate(bc, held) {
		b := Badge{
			ID:          uuid.New(),
			UserID:      p.UserID,
			Type:        r.Type,
			Name:        r.Name,
			Description: r.Description,
			Icon:        r.Icon,
			EarnedAt:    now,
		}
		inserted, err := tx.InsertBadge(ctx, &b)
		if err != nil {
			return nil, fmt.Errorf("insert badge %s: %w", r.Type, err)
		}
		if inserted {
			earned = append(earned, b)
		}
	}
	return earned, nil
}

func (e *Engine) notifyAward(ctx context.Context, res *AwardResult) {
	userID := res.Activity.UserID
	e.notifier.Notify(ctx, userID, xpEarnedNotification(res.Activity))
	if res.LeveledUp {
		e.notifier.Notify(ctx, userID, levelUpNotification(res.Progression))
	}
	for _, b := range res.NewBadges {
		e.notifier.Notify(ctx, userID, badgeNotification(b))
	}
}

// FetchProgression returns the user's stored progression, or the level 1
// zero state if the user has never earned XP.
func (e *Engine) FetchProgression(ctx context.Context, userID uuid.UUID) (*ProgressionView, error) {
	if userID == uuid.Nil {
		return nil, invalid("user_id", ErrInvalidUser)
	}
	p, err := e.store.GetProgression(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		z := zeroProgression(userID, e.levels)
		p = &z
	case err != nil:
		return nil, persistErr("fetch progression", err)
	}
	badges, err := e.store.ListBadges(ctx, userID)
	if err != nil {
		return nil, persistErr("fetch badges", err)
	}
	if badges == nil {
		badges = []Badge{}
	}
	view := &ProgressionView{
		Progression: *p,
		Badges:      badges,
		ProgressPct: e.levels.ProgressToNextLevel(p.TotalXP),
		XPToNext:    e.levels.XPToNextLevel(p.TotalXP),
	}
	if next, ok := e.levels.NextReward(p.TotalXP); ok {
		view.NextLevel = &next
	}
	return view, nil
}

// FetchStats summarizes the user's week, streak and course activity.
func (e *Engine) FetchStats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	if userID == uuid.Nil {
		return nil, invalid("user_id", ErrInvalidUser)
	}
	now := e.now().UTC()
	ws := weekStart(now)

	var (
		weekly   []XPActivity
		streak   int
		counts   map[ActivityType]int
		progress []CourseProgress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		weekly, err = e.store.ListActivities(gctx, userID, QueryOpts{From: ws})
		return err
	})
	g.Go(func() error {
		var err error
		streak, err = streakDays(gctx, e.store, userID, now)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = e.store.ActivityCounts(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		progress, err = e.store.ListCourseProgress(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, persistErr("fetch stats", err)
	}

	weeklyXP, weeklyN := weekTotals(weekly)
	total := 0
	for _, n := range counts {
		total += n
	}
	started, completed := courseTotals(progress)
	return &Stats{
		UserID:            userID,
		WeekStart:         ws,
		WeeklyXP:          weeklyXP,
		WeeklyActivities:  weeklyN,
		WeeklyGoal:        e.weeklyGoal,
		WeeklyGoalPct:     percentOf(weeklyXP, e.weeklyGoal),
		StreakDays:        streak,
		TotalActivities:   total,
		CoursesStarted:    started,
		CoursesCompleted:  completed,
		CompletionRatePct: percentOf(completed, started),
	}, nil
}

// Recompute re-derives the user's progression from the ledger alone and
// stores it. It repairs a progression row that drifted from the ledger.
func (e *Engine) Recompute(ctx context.Context, userID uuid.UUID) (*UserProgression, error) {
	if userID == uuid.Nil {
		return nil, invalid("user_id", ErrInvalidUser)
	}
	unlock := e.users.Lock(userID.String())
	defer unlock()

	var out UserProgression
	err := e.store.WithinTx(ctx, func(tx Store) error {
		now := e.now().UTC()
		cur, err := e.lockProgression(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		total, err := tx.SumXP(ctx, userID)
		if err != nil {
			return fmt.Errorf("sum xp: %w", err)
		}
		lvl := e.levels.LevelForXP(total)
		out = *cur
		if out.TotalXP != total || out.CurrentLevel != lvl.Level {
			e.log.Warn("progression drifted from ledger", "user_id", userID,
				"stored_xp", out.TotalXP, "ledger_xp", total)
		}
		out.TotalXP, out.CurrentLevel, out.LevelName, out.UpdatedAt = total, lvl.Level, lvl.Name, now
		return tx.SaveProgression(ctx, &out)
	})
	if err != nil {
		return nil, persistErr("recompute progression", err)
	}
	return &out, nil
}

// ListActivities returns the user's most recent ledger entries, newest
// first. A non-positive limit selects the default; limits are capped.
func (e *Engine) ListActivities(ctx context.Context, userID uuid.UUID, limit int) ([]XPActivity, error) {
	if userID == uuid.Nil {
		return nil, invalid("user_id", ErrInvalidUser)
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	limit = min(limit, maxActivityLimit)
	acts, err := e.store.ListActivities(ctx, userID, QueryOpts{Limit: limit})
	if err != nil {
		return nil, persistErr("list activities", err)
	}
	if acts == nil {
		acts = []XPActivity{}
	}
	return acts, nil
}
