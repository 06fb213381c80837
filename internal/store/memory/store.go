// Package memory is an in-process gamification.Store. Every transaction
// works on a private snapshot that replaces the live data on commit, so a
// failed transaction leaves no trace. Writers are serialized.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/internlink/backend/internal/gamification"
)

type progressKey struct {
	user, course uuid.UUID
}

type data struct {
	activities  []gamification.XPActivity
	progression map[uuid.UUID]gamification.UserProgression
	badges      map[uuid.UUID][]gamification.Badge
	courses     map[uuid.UUID]gamification.Course
	progress    map[progressKey]gamification.CourseProgress

	// courseSeq records insertion order; it stands in for created_at.
	courseSeq map[uuid.UUID]int
	nextSeq   int
}

func newData() *data {
	return &data{
		progression: make(map[uuid.UUID]gamification.UserProgression),
		badges:      make(map[uuid.UUID][]gamification.Badge),
		courses:     make(map[uuid.UUID]gamification.Course),
		progress:    make(map[progressKey]gamification.CourseProgress),
		courseSeq:   make(map[uuid.UUID]int),
	}
}

func (d *data) clone() *data {
	c := &data{
		activities:  make([]gamification.XPActivity, len(d.activities)),
		progression: make(map[uuid.UUID]gamification.UserProgression, len(d.progression)),
		badges:      make(map[uuid.UUID][]gamification.Badge, len(d.badges)),
		courses:     make(map[uuid.UUID]gamification.Course, len(d.courses)),
		progress:    make(map[progressKey]gamification.CourseProgress, len(d.progress)),
		courseSeq:   make(map[uuid.UUID]int, len(d.courseSeq)),
		nextSeq:     d.nextSeq,
	}
	copy(c.activities, d.activities)
	for k, v := range d.progression {
		c.progression[k] = v
	}
	for k, v := range d.badges {
		c.badges[k] = append([]gamification.Badge(nil), v...)
	}
	for k, v := range d.courses {
		c.courses[k] = v
	}
	for k, v := range d.progress {
		c.progress[k] = v
	}
	for k, v := range d.courseSeq {
		c.courseSeq[k] = v
	}
	return c
}

// Store is safe for concurrent use.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	d    *data
}

func New() *Store {
	return &Store{d: newData()}
}

var (
	_ gamification.Store = (*Store)(nil)
	_ gamification.Store = (*tx)(nil)
)

func (s *Store) WithinTx(ctx context.Context, fn func(gamification.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snap := s.d.clone()
	s.mu.RUnlock()

	if err := fn(&tx{d: snap}); err != nil {
		return err
	}
	s.mu.Lock()
	s.d = snap
	s.mu.Unlock()
	return nil
}

func (s *Store) read() (*tx, func()) {
	s.mu.RLock()
	return &tx{d: s.d}, s.mu.RUnlock
}

func (s *Store) AppendActivity(ctx context.Context, a *gamification.XPActivity) error {
	return s.WithinTx(ctx, func(t gamification.Store) error { return t.AppendActivity(ctx, a) })
}

func (s *Store) SumXP(ctx context.Context, userID uuid.UUID) (int, error) {
	t, done := s.read()
	defer done()
	return t.SumXP(ctx, userID)
}

func (s *Store) ActivityCounts(ctx context.Context, userID uuid.UUID) (map[gamification.ActivityType]int, error) {
	t, done := s.read()
	defer done()
	return t.ActivityCounts(ctx, userID)
}

func (s *Store) ActivityDays(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error) {
	t, done := s.read()
	defer done()
	return t.ActivityDays(ctx, userID, since)
}

func (s *Store) ListActivities(ctx context.Context, userID uuid.UUID, opts gamification.QueryOpts) ([]gamification.XPActivity, error) {
	t, done := s.read()
	defer done()
	return t.ListActivities(ctx, userID, opts)
}

func (s *Store) LockProgression(ctx context.Context, userID uuid.UUID, initial gamification.UserProgression) (*gamification.UserProgression, error) {
	var out *gamification.UserProgression
	err := s.WithinTx(ctx, func(t gamification.Store) error {
		var err error
		out, err = t.LockProgression(ctx, userID, initial)
		return err
	})
	return out, err
}

func (s *Store) GetProgression(ctx context.Context, userID uuid.UUID) (*gamification.UserProgression, error) {
	t, done := s.read()
	defer done()
	return t.GetProgression(ctx, userID)
}

func (s *Store) SaveProgression(ctx context.Context, p *gamification.UserProgression) error {
	return s.WithinTx(ctx, func(t gamification.Store) error { return t.SaveProgression(ctx, p) })
}

func (s *Store) ListBadges(ctx context.Context, userID uuid.UUID) ([]gamification.Badge, error) {
	t, done := s.read()
	defer done()
	return t.ListBadges(ctx, userID)
}

func (s *Store) InsertBadge(ctx context.Context, b *gamification.Badge) (bool, error) {
	var inserted bool
	err := s.WithinTx(ctx, func(t gamification.Store) error {
		var err error
		inserted, err = t.InsertBadge(ctx, b)
		return err
	})
	return inserted, err
}

func (s *Store) GetCourse(ctx context.Context, courseID uuid.UUID) (*gamification.Course, error) {
	t, done := s.read()
	defer done()
	return t.GetCourse(ctx, courseID)
}

func (s *Store) ListActiveCourses(ctx context.Context) ([]gamification.Course, error) {
	t, done := s.read()
	defer done()
	return t.ListActiveCourses(ctx)
}

func (s *Store) UpsertCourse(ctx context.Context, c *gamification.Course) error {
	return s.WithinTx(ctx, func(t gamification.Store) error { return t.UpsertCourse(ctx, c) })
}

func (s *Store) GetCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*gamification.CourseProgress, error) {
	t, done := s.read()
	defer done()
	return t.GetCourseProgress(ctx, userID, courseID)
}

func (s *Store) SaveCourseProgress(ctx context.Context, p *gamification.CourseProgress) error {
	return s.WithinTx(ctx, func(t gamification.Store) error { return t.SaveCourseProgress(ctx, p) })
}

func (s *Store) ListCourseProgress(ctx context.Context, userID uuid.UUID) ([]gamification.CourseProgress, error) {
	t, done := s.read()
	defer done()
	return t.ListCourseProgress(ctx, userID)
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// tx operates directly on one data set without locking. The owner provides
// exclusion.
type tx struct {
	d *data
}

// WithinTx joins the enclosing transaction.
func (t *tx) WithinTx(_ context.Context, fn func(gamification.Store) error) error {
	return fn(t)
}

func (t *tx) AppendActivity(_ context.Context, a *gamification.XPActivity) error {
	cp := *a
	cp.SubjectID = cloneID(a.SubjectID)
	t.d.activities = append(t.d.activities, cp)
	return nil
}

func (t *tx) SumXP(_ context.Context, userID uuid.UUID) (int, error) {
	total := 0
	for _, a := range t.d.activities {
		if a.UserID == userID {
			total += a.XPEarned
		}
	}
	return total, nil
}

func (t *tx) ActivityCounts(_ context.Context, userID uuid.UUID) (map[gamification.ActivityType]int, error) {
	counts := make(map[gamification.ActivityType]int)
	for _, a := range t.d.activities {
		if a.UserID == userID {
			counts[a.Type]++
		}
	}
	return counts, nil
}

func (t *tx) ActivityDays(_ context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error) {
	seen := make(map[time.Time]bool)
	var days []time.Time
	for _, a := range t.d.activities {
		if a.UserID != userID || a.OccurredAt.Before(since) {
			continue
		}
		y, m, d := a.OccurredAt.UTC().Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	return days, nil
}

func (t *tx) ListActivities(_ context.Context, userID uuid.UUID, opts gamification.QueryOpts) ([]gamification.XPActivity, error) {
	var out []gamification.XPActivity
	// Walk backwards so equal timestamps keep newest-appended first.
	for i := len(t.d.activities) - 1; i >= 0; i-- {
		a := t.d.activities[i]
		if a.UserID != userID {
			continue
		}
		if !opts.From.IsZero() && a.OccurredAt.Before(opts.From) {
			continue
		}
		if !opts.To.IsZero() && a.OccurredAt.After(opts.To) {
			continue
		}
		a.SubjectID = cloneID(a.SubjectID)
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (t *tx) LockProgression(_ context.Context, userID uuid.UUID, initial gamification.UserProgression) (*gamification.UserProgression, error) {
	if p, ok := t.d.progression[userID]; ok {
		return &p, nil
	}
	initial.UserID = userID
	t.d.progression[userID] = initial
	return &initial, nil
}

func (t *tx) GetProgression(_ context.Context, userID uuid.UUID) (*gamification.UserProgression, error) {
	p, ok := t.d.progression[userID]
	if !ok {
		return nil, gamification.ErrNotFound
	}
	return &p, nil
}

func (t *tx) SaveProgression(_ context.Context, p *gamification.UserProgression) error {
	t.d.progression[p.UserID] = *p
	return nil
}

func (t *tx) ListBadges(_ context.Context, userID uuid.UUID) ([]gamification.Badge, error) {
	held := t.d.badges[userID]
	out := make([]gamification.Badge, 0, len(held))
	for i := len(held) - 1; i >= 0; i-- {
		out = append(out, held[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EarnedAt.After(out[j].EarnedAt) })
	return out, nil
}

func (t *tx) InsertBadge(_ context.Context, b *gamification.Badge) (bool, error) {
	for _, h := range t.d.badges[b.UserID] {
		if h.Type == b.Type {
			return false, nil
		}
	}
	t.d.badges[b.UserID] = append(t.d.badges[b.UserID], *b)
	return true, nil
}

func (t *tx) GetCourse(_ context.Context, courseID uuid.UUID) (*gamification.Course, error) {
	c, ok := t.d.courses[courseID]
	if !ok {
		return nil, gamification.ErrNotFound
	}
	return &c, nil
}

func (t *tx) ListActiveCourses(_ context.Context) ([]gamification.Course, error) {
	out := make([]gamification.Course, 0, len(t.d.courses))
	for _, c := range t.d.courses {
		if c.IsActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return t.d.courseSeq[out[i].ID] < t.d.courseSeq[out[j].ID]
	})
	return out, nil
}

func (t *tx) UpsertCourse(_ context.Context, c *gamification.Course) error {
	if _, ok := t.d.courseSeq[c.ID]; !ok {
		t.d.nextSeq++
		t.d.courseSeq[c.ID] = t.d.nextSeq
	}
	t.d.courses[c.ID] = *c
	return nil
}

func (t *tx) GetCourseProgress(_ context.Context, userID, courseID uuid.UUID) (*gamification.CourseProgress, error) {
	p, ok := t.d.progress[progressKey{userID, courseID}]
	if !ok {
		return nil, gamification.ErrNotFound
	}
	return cloneProgress(p), nil
}

func (t *tx) SaveCourseProgress(_ context.Context, p *gamification.CourseProgress) error {
	t.d.progress[progressKey{p.UserID, p.CourseID}] = *cloneProgress(*p)
	return nil
}

func (t *tx) ListCourseProgress(_ context.Context, userID uuid.UUID) ([]gamification.CourseProgress, error) {
	var out []gamification.CourseProgress
	for k, p := range t.d.progress {
		if k.user == userID {
			out = append(out, *cloneProgress(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID.String() < out[j].CourseID.String() })
	return out, nil
}

func (t *tx) Ping(ctx context.Context) error { return ctx.Err() }

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	cp := *id
	return &cp
}

func cloneTime(ts *time.Time) *time.Time {
	if ts == nil {
		return nil
	}
	cp := *ts
	return &cp
}

func cloneProgress(p gamification.CourseProgress) *gamification.CourseProgress {
	p.StartedAt = cloneTime(p.StartedAt)
	p.CompletedAt = cloneTime(p.CompletedAt)
	return &p
}
