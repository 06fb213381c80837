package gamification

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/internlink/backend/internal/logger"
)

// Locker is a non-blocking mutual exclusion primitive keyed by string.
// TryLock never waits: it reports false when the key is already held.
type Locker interface {
	TryLock(ctx context.Context, key string) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// MemoryLocker is a process-local Locker.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (m *MemoryLocker) TryLock(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[key]; ok {
		return false, nil
	}
	m.held[key] = struct{}{}
	return true, nil
}

func (m *MemoryLocker) Unlock(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	return nil
}

// CompletionGuard admits at most one completion attempt per (user, subject)
// at a time and never admits one for a subject already completed. Concurrent
// attempts are rejected, not queued.
type CompletionGuard struct {
	locker Locker
	store  Store
	log    *logger.Logger
}

func NewCompletionGuard(locker Locker, store Store, log *logger.Logger) *CompletionGuard {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CompletionGuard{locker: locker, store: store, log: log}
}

func completionKey(userID, subjectID uuid.UUID) string {
	return fmt.Sprintf("completion:%s:%s", userID, subjectID)
}

// TryComplete attempts to admit a completion. On admission the caller owns
// the in-flight marker and must call release when done, whatever the
// outcome. A rejection returns admitted=false with a nil error.
func (g *CompletionGuard) TryComplete(ctx context.Context, userID, subjectID uuid.UUID) (release func(), admitted bool, err error) {
	if userID == uuid.Nil {
		return nil, false, invalid("user_id", ErrInvalidUser)
	}
	if subjectID == uuid.Nil {
		return nil, false, invalid("course_id", ErrUnknownCourse)
	}

	key := completionKey(userID, subjectID)
	ok, err := g.locker.TryLock(ctx, key)
	if err != nil {
		return nil, false, persistErr("acquire completion lock", err)
	}
	if !ok {
		g.log.Debug("completion already in flight", "user_id", userID, "course_id", subjectID)
		return nil, false, nil
	}

	var once sync.Once
	release = func() {
		once.Do(func() {
			if err := g.locker.Unlock(context.WithoutCancel(ctx), key); err != nil {
				g.log.Warn("release completion lock", "key", key, "error", err)
			}
		})
	}

	cp, err := g.store.GetCourseProgress(ctx, userID, subjectID)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		release()
		return nil, false, persistErr("read course progress", err)
	case cp.Status == CourseCompleted:
		release()
		g.log.Debug("course already completed", "user_id", userID, "course_id", subjectID)
		return nil, false, nil
	}
	return release, true, nil
}
