package gamification_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/internlink/backend/internal/gamification"
	"github.com/internlink/backend/internal/store/memory"
)

var errInjected = errors.New("injected store failure")

// recorder is a Notifier that keeps every notification it receives.
type recorder struct {
	mu  sync.Mutex
	got []gamification.Notification
}

func (r *recorder) Notify(_ context.Context, _ uuid.UUID, n gamification.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) kinds() []gamification.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]gamification.NotificationKind, len(r.got))
	for i, n := range r.got {
		out[i] = n.Kind
	}
	return out
}

func (r *recorder) count(kind gamification.NotificationKind) int {
	n := 0
	for _, k := range r.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// failingStore fails the named operation, inside or outside transactions.
type failingStore struct {
	gamification.Store
	failBadge    bool
	failProgress bool
}

func (f *failingStore) WithinTx(ctx context.Context, fn func(gamification.Store) error) error {
	return f.Store.WithinTx(ctx, func(tx gamification.Store) error {
		return fn(&failingStore{Store: tx, failBadge: f.failBadge, failProgress: f.failProgress})
	})
}

func (f *failingStore) InsertBadge(ctx context.Context, b *gamification.Badge) (bool, error) {
	if f.failBadge {
		return false, errInjected
	}
	return f.Store.InsertBadge(ctx, b)
}

func (f *failingStore) SaveCourseProgress(ctx context.Context, p *gamification.CourseProgress) error {
	if f.failProgress {
		return errInjected
	}
	return f.Store.SaveCourseProgress(ctx, p)
}

type fixture struct {
	store    *memory.Store
	engine   *gamification.Engine
	courses  *gamification.CourseService
	notes    *recorder
	clock    *clock
	courseID uuid.UUID
}

func newFixture(store gamification.Store, mem *memory.Store) *fixture {
	notes := &recorder{}
	clk := newClock(time.Date(2026, time.March, 11, 15, 0, 0, 0, time.UTC))
	engine := gamification.NewEngine(store,
		gamification.WithNotifier(notes),
		gamification.WithClock(clk.Now),
	)
	guard := gamification.NewCompletionGuard(gamification.NewMemoryLocker(), store, nil)
	course := gamification.Course{
		ID:       uuid.New(),
		Title:    "Resume Writing 101",
		Category: "career",
		IsActive: true,
	}
	if err := mem.UpsertCourse(context.Background(), &course); err != nil {
		panic(err)
	}
	return &fixture{
		store:    mem,
		engine:   engine,
		courses:  gamification.NewCourseService(engine, guard),
		notes:    notes,
		clock:    clk,
		courseID: course.ID,
	}
}

func setup() *fixture {
	mem := memory.New()
	return newFixture(mem, mem)
}

// txLogStore records, in order, the progression locks and course progress
// reads issued inside transactions.
type txLogStore struct {
	gamification.Store
	mu   *sync.Mutex
	ops  *[]string
	inTx bool
}

func newTxLogStore(s gamification.Store) *txLogStore {
	return &txLogStore{Store: s, mu: &sync.Mutex{}, ops: new([]string)}
}

func (l *txLogStore) record(op string) {
	if !l.inTx {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.ops = append(*l.ops, op)
}

func (l *txLogStore) take() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := *l.ops
	*l.ops = nil
	return out
}

func (l *txLogStore) WithinTx(ctx context.Context, fn func(gamification.Store) error) error {
	return l.Store.WithinTx(ctx, func(tx gamification.Store) error {
		return fn(&txLogStore{Store: tx, mu: l.mu, ops: l.ops, inTx: true})
	})
}

func (l *txLogStore) LockProgression(ctx context.Context, userID uuid.UUID, initial gamification.UserProgression) (*gamification.UserProgression, error) {
	l.record("lock_progression")
	return l.Store.LockProgression(ctx, userID, initial)
}

func (l *txLogStore) GetCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*gamification.CourseProgress, error) {
	l.record("get_course_progress")
	return l.Store.GetCourseProgress(ctx, userID, courseID)
}
