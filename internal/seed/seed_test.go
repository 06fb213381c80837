package seed

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internlink/backend/internal/gamification"
	"github.com/internlink/backend/internal/store/memory"
)

func TestCatalogIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, Catalog(ctx, store, nil, nil))
	require.NoError(t, Catalog(ctx, store, nil, nil))

	list, err := store.ListActiveCourses(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(DefaultCatalog()))
}

func TestCatalogDerivesMissingIDs(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, Catalog(ctx, store, []gamification.Course{{Title: "Cover Letters", IsActive: true}}, nil))

	c, err := store.GetCourse(ctx, CourseID("Cover Letters"))
	require.NoError(t, err)
	assert.Equal(t, "Cover Letters", c.Title)
	assert.Equal(t, CourseID("Cover Letters"), CourseID("Cover Letters"))
	assert.NotEqual(t, CourseID("Cover Letters"), CourseID("Resume Writing 101"))
}

func newGenerator(t *testing.T, seed int64) (*Generator, *gamification.Engine, *memory.Store) {
	t.Helper()
	store := memory.New()
	require.NoError(t, Catalog(context.Background(), store, nil, nil))
	engine := gamification.NewEngine(store)
	courses := gamification.NewCourseService(engine, gamification.NewCompletionGuard(nil, store, nil))
	return NewGenerator(engine, courses, DefaultCatalog(), uuid.Nil, seed, nil), engine, store
}

func TestGeneratorBackfill(t *testing.T) {
	ctx := context.Background()
	g, engine, store := newGenerator(t, 42)
	assert.Equal(t, DemoUserID, g.UserID())

	require.NoError(t, g.Backfill(ctx, 60))

	view, err := engine.FetchProgression(ctx, DemoUserID)
	require.NoError(t, err)
	sum, err := store.SumXP(ctx, DemoUserID)
	require.NoError(t, err)
	assert.Equal(t, sum, view.Progression.TotalXP)
	assert.Equal(t, engine.Levels().LevelForXP(sum).Level, view.Progression.CurrentLevel)

	counts, err := store.ActivityCounts(ctx, DemoUserID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[gamification.ActivityProfileCompleted])
	assert.Positive(t, counts[gamification.ActivityCourseCompletion])

	progress, err := store.ListCourseProgress(ctx, DemoUserID)
	require.NoError(t, err)
	for _, p := range progress {
		if p.Status == gamification.CourseCompleted {
			assert.Equal(t, 100, p.ProgressPercentage)
		}
	}
	assert.LessOrEqual(t, counts[gamification.ActivityCourseCompletion], len(DefaultCatalog()))
}

func TestGeneratorStartStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g, _, store := newGenerator(t, 7)
	g.Start(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		n, err := store.SumXP(context.Background(), DemoUserID)
		return err == nil && n > 0
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
}
