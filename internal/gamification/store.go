package gamification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence collaborator. Implementations must make the
// methods called inside WithinTx atomic as a group: either every write in fn
// becomes visible or none does.
type Store interface {
	// WithinTx runs fn against a transactional view of the store. A non-nil
	// error from fn rolls the transaction back and is returned unchanged.
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	// Ledger.
	AppendActivity(ctx context.Context, a *XPActivity) error
	SumXP(ctx context.Context, userID uuid.UUID) (int, error)
	ActivityCounts(ctx context.Context, userID uuid.UUID) (map[ActivityType]int, error)
	// ActivityDays returns the distinct UTC calendar days (at midnight) on
	// which the user has at least one activity at or after since, newest first.
	ActivityDays(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error)
	ListActivities(ctx context.Context, userID uuid.UUID, opts QueryOpts) ([]XPActivity, error)

	// Progression. LockProgression creates the row if missing and holds a
	// row lock on it for the rest of the transaction where supported.
	LockProgression(ctx context.Context, userID uuid.UUID, initial UserProgression) (*UserProgression, error)
	GetProgression(ctx context.Context, userID uuid.UUID) (*UserProgression, error)
	SaveProgression(ctx context.Context, p *UserProgression) error

	// Badges. InsertBadge reports false without error when the user already
	// holds a badge of the same type.
	ListBadges(ctx context.Context, userID uuid.UUID) ([]Badge, error)
	InsertBadge(ctx context.Context, b *Badge) (bool, error)

	// Course catalog.
	GetCourse(ctx context.Context, courseID uuid.UUID) (*Course, error)
	ListActiveCourses(ctx context.Context) ([]Course, error)
	UpsertCourse(ctx context.Context, c *Course) error

	// Course progress.
	GetCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*CourseProgress, error)
	SaveCourseProgress(ctx context.Context, p *CourseProgress) error
	ListCourseProgress(ctx context.Context, userID uuid.UUID) ([]CourseProgress, error)

	Ping(ctx context.Context) error
}
