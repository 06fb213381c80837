package gamification_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internlink/backend/internal/gamification"
)

func TestAwardXP_StartThenComplete(t *testing.T) {
	f := setup()
	ctx := context.Background()
	user := uuid.New()

	first, err := f.engine.AwardXP(ctx, user, 10, gamification.ActivityCourseStarted, "Started course: Resume Writing 101")
	require.NoError(t, err)
	assert.Equal(t, 10, first.Progression.TotalXP)
	assert.Equal(t, 0, first.Previous.TotalXP)

	res, err := f.engine.AwardXP(ctx, user, 50, gamification.ActivityCourseCompletion, "Completed course: Resume Writing 101")
	require.NoError(t, err)
	assert.Equal(t, 60, res.Progression.TotalXP)
	assert.Equal(t, 1, res.Progression.CurrentLevel)
	assert.Equal(t, "Newcomer", res.Progression.LevelName)
	assert.Equal(t, 40, res.XPToNext)
	assert.InDelta(t, 60.0, res.ProgressPct, 1e-9)
	assert.False(t, res.LeveledUp)
	assert.Equal(t, 10, res.Previous.TotalXP)
	assert.Equal(t, gamification.ActivityCourseCompletion, res.Activity.Type)

	total, err := f.store.SumXP(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 60, total, "stored total must match the ledger")
}

func TestAwardXP_LevelUp(t *testing.T) {
	f := setup()
	ctx := context.Background()
	user := uuid.New()

	_, err := f.engine.AwardXP(ctx, user, 240, gamification.ActivityProfileCompleted, "seeded")
	require.NoError(t, err)

	res, err := f.engine.AwardXP(ctx, user, 50, gamification.ActivityCourseCompletion, "Completed course: Interviewing")
	require.NoError(t, err)
	assert.Equal(t, 290, res.Progression.TotalXP)
	assert.Equal(t, 2, res.Previous.CurrentLevel)
	assert.Equal(t, 3, res.Progression.CurrentLevel)
	assert.Equal(t, "Achiever", res.Progression.LevelName)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 210, res.XPToNext)

	var rising bool
	for _, b := range res.NewBadges {
		if b.Type == "rising_star" {
			rising = true
		}
	}
	assert.True(t, rising, "reaching level 3 should earn rising_star")
	assert.Equal(t, 2, f.notes.count(gamification.KindLevelUp), "240 XP reaches level 2, 290 reaches level 3")
}

func TestAwardXP_ValidationRejectsWithoutMutation(t *testing.T) {
	f := setup()
	ctx := context.Background()
	user := uuid.New()

	cases := []struct {
		name   string
		user   uuid.UUID
		amount int
		typ    gamification.ActivityType
		desc   string
		target error
	}{
		{"nil user", uuid.Nil, 10, gamification.ActivityDailyLogin, "login", gamification.ErrInvalidUser},
		{"zero amount", user, 0, gamification.ActivityDailyLogin, "login", gamification.ErrNonPositiveAmount},
		{"negative amount", user, -5, gamification.ActivityDailyLogin, "login", gamification.ErrNonPositiveAmount},
		{"unknown type", user, 10, "hacking", "login", gamification.ErrUnknownActivity},
		{"blank description", user, 10, gamification.ActivityDailyLogin, "   ", gamification.ErrEmptyDescription},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.AwardXP(ctx, tc.user, tc.amount, tc.typ, tc.desc)
			require.Error(t, err)
			assert.True(t, gamification.IsValidation(err))
			assert.ErrorIs(t, err, tc.target)
		})
	}

	acts, err := f.store.ListActivities(ctx, user, gamification.QueryOpts{})
	require.NoError(t, err)
	assert.Empty(t, acts)
	assert.Empty(t, f.notes.kinds())
}

func TestAwardXP_StoreFailureRollsBack(t *testing.T) {
	mem := setup().store
	f := newFixture(&failingStore{Store: mem, failBadge: true}, mem)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.engine.AwardXP(ctx, user, 10, gamification.ActivityDailyLogin, "Daily login")
	require.Error(t, err)
	assert.True(t, gamification.IsPersistence(err))
	assert.ErrorIs(t, err, errInjected)

	total, err := mem.SumXP(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, total, "ledger entry survived a failed award")
	_, err = mem.GetProgression(ctx, user)
	assert.ErrorIs(t, err, gamification.ErrNotFound)
	assert.Empty(t, f.notes.kinds(), "no notification may follow a failed award")
}

func TestAwardXP_Notifications(t *testing.T) {
	f := setup()
	ctx := context.Background()

	_, err := f.engine.AwardXP(ctx, uuid.New(), 10, gamification.ActivityCourseStarted, "Started course: Go")
	require.NoError(t, err)

	kinds := f.notes.kinds()
	require.NotEmpty(t, kinds)
	assert.Equal(t, gamification.KindXPEarned, kinds[0])
	assert.Equal(t, 2, f.notes.count(gamification.KindBadgeEarned), "first_steps and course_starter")

	f.notes.mu.Lock()
	first := f.notes.got[0]
	f.notes.mu.Unlock()
	assert.Equal(t, "XP Earned!", first.Title)
	assert.Equal(t, "You earned 10 XP for Started course: Go", first.Description)
}

func TestAwardXP_LedgerSumIsOrderIndependent(t *testing.T) {
	f := setup()
	ctx := context.Background()
	amounts := []int{10, 50, 25, 30, 5, 120}
	orders := [][]int{{0, 1, 2, 3, 4, 5}, {5, 4, 3, 2, 1, 0}, {2, 5, 0, 4, 1, 3}}

	var totals, levels []int
	for _, order := range orders {
		user := uuid.New()
		var last *gamification.AwardResult
		for _, i := range order {
			res, err := f.engine.AwardXP(ctx, user, amounts[i], gamification.ActivityDailyLogin, "login")
			require.NoError(t, err)
			last = res
		}
		totals = append(totals, last.Progression.TotalXP)
		levels = append(levels, last.Progression.CurrentLevel)
	}
	for i := range orders {
		assert.Equal(t, 240, totals[i])
		assert.Equal(t, 2, levels[i])
	}
}

func TestAwardXP_LevelNeverDecreases(t *testing.T) {
	f := setup()
	ctx := context.Background()
	user := uuid.New()
	prev := 0
	for i := 0; i < 40; i++ {
		res, err := f.engine.AwardXP(ctx, user, 7+i*3, gamification.ActivityDailyLogin, "login")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Progression.CurrentLevel, prev)
		assert.GreaterOrEqual(t, res.ProgressPct, 0.0)
		assert.LessOrEqual(t, res.ProgressPct, 100.0)
		prev = res.Progression.CurrentLevel
	}
	assert.Equal(t, 6, prev)
}

func TestAwardXP_ConcurrentAwardsForOneUser(t *testing.T) {
	f := setup()
	ctx := context.Background()
	user := uuid.New()

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.AwardXP(ctx, user, 20, gamification.ActivityDailyLogin, "login")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	view, err := f.engine.FetchProgression(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, n*20, view.Progression.TotalXP, "no award may be lost")
	assert.Equal(t, 4, view.Progression.CurrentLevel)

	seen := make(map[string]bool)
	for _, b := range view.Badges {
		assert.False(t, seen[b.Type], "duplicate badge %s", b.Type)
		seen[b.Type] = true
	}
	assert.True(t, seen["xp_hunter"])
}

func TestFetchProgression_ZeroState(t *testing.T) {
	f := setup()
	view, err := f.engine.FetchProgression(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 0, view.Progression.TotalXP)
	assert.Equal(t, 1, view.Progression.CurrentLevel)
	assert.Equal(t, "Newcomer", view.Progression.LevelName)
	assert.Equal(t, 100, view.XPToNext)
	assert.NotNil(t, view.Badges)
	require.NotNil(t, view.NextLevel)
	assert.Equal(t, "Profile Badge", view.NextLevel.Reward)
}

func TestFetchProgression_AtCap(t *testing.T) {
	f := setup()
	ctx := context.Background()
	user := uuid.New()
	_, err := f.engine.AwardXP(ctx, user, 2500, gamification.ActivityProfileCompleted, "bulk")
	require.NoError(t, err)

	view, err := f.engine.FetchProgression(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 6, view.Progression.CurrentLevel)
	assert.Equal(t, 100.0, view.ProgressPct)
	assert.Zero(t, view.XPToNext)
	assert.Nil(t, view.NextLevel)
}

func TestFetchStats_WeekAndStreak(t *testing.T) {
	f := setup()
	ctx := context.Background()
	user := uuid.New()

	// Saturday of the previous week, then Monday through Wednesday.
	f.clock.now = time.Date(2026, time.March, 7, 10, 0, 0, 0, time.UTC)
	_, err := f.engine.AwardXP(ctx, user, 30, gamification.ActivityProfileCompleted, "Profile completed")
	require.NoError(t, err)
	for _, d := range []int{9, 10, 11} {
		f.clock.now = time.Date(2026, time.March, d, 10, 0, 0, 0, time.UTC)
		_, err := f.engine.AwardXP(ctx, user, 5, gamification.ActivityDailyLogin, "Daily login")
		require.NoError(t, err)
	}

	stats, err := f.engine.FetchStats(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC), stats.WeekStart)
	assert.Equal(t, 15, stats.WeeklyXP)
	assert.Equal(t, 3, stats.WeeklyActivities)
	assert.Equal(t, gamification.DefaultWeeklyGoal, stats.WeeklyGoal)
	assert.InDelta(t, 7.5, stats.WeeklyGoalPct, 1e-9)
	assert.Equal(t, 3, stats.StreakDays)
	assert.Equal(t, 4, stats.TotalActivities)

	view, err := f.engine.FetchProgression(ctx, user)
	require.NoError(t, err)
	var onFire bool
	for _, b := range view.Badges {
		onFire = onFire || b.Type == "on_fire"
	}
	assert.True(t, onFire, "three consecutive days should earn on_fire")
}

func TestRecompute_RepairsDrift(t *testing.T) {
	f := setup()
	ctx := context.Background()
	user := uuid.New()
	_, err := f.engine.AwardXP(ctx, user, 120, gamification.ActivityProfileCompleted, "Profile completed")
	require.NoError(t, err)

	require.NoError(t, f.store.SaveProgression(ctx, &gamification.UserProgression{
		UserID: user, TotalXP: 9999, CurrentLevel: 6, LevelName: "Legend",
	}))

	p, err := f.engine.Recompute(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 120, p.TotalXP)
	assert.Equal(t, 2, p.CurrentLevel)
	assert.Equal(t, "Explorer", p.LevelName)

	stored, err := f.store.GetProgression(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 120, stored.TotalXP)
}

func TestListActivities_NewestFirstAndLimited(t *testing.T) {
	f := setup()
	ctx := context.Background()
	user := uuid.New()
	for i := 0; i < 30; i++ {
		f.clock.Advance(time.Minute)
		_, err := f.engine.AwardXP(ctx, user, 1+i, gamification.ActivityDailyLogin, "login")
		require.NoError(t, err)
	}

	acts, err := f.engine.ListActivities(ctx, user, 0)
	require.NoError(t, err)
	require.Len(t, acts, 20)
	assert.Equal(t, 30, acts[0].XPEarned)

	acts, err = f.engine.ListActivities(ctx, user, 5)
	require.NoError(t, err)
	assert.Len(t, acts, 5)
}

func TestEngineOptions(t *testing.T) {
	mem := setup().store
	table, err := gamification.NewLevelTable([]gamification.LevelThreshold{
		{Level: 1, MinXP: 0, Name: "Rookie"},
		{Level: 2, MinXP: 20, Name: "Pro"},
	})
	require.NoError(t, err)
	engine := gamification.NewEngine(mem,
		gamification.WithLevelTable(table),
		gamification.WithBadgeEngine(gamification.NewBadgeEngine(nil)),
		gamification.WithXPAmounts(map[gamification.ActivityType]int{gamification.ActivityCourseStarted: 15, gamification.ActivityDailyLogin: -1}),
		gamification.WithWeeklyGoal(50),
	)
	assert.Equal(t, 15, engine.XPFor(gamification.ActivityCourseStarted))
	assert.Equal(t, gamification.XPDailyLogin, engine.XPFor(gamification.ActivityDailyLogin))

	res, err := engine.AwardXP(context.Background(), uuid.New(), 25, gamification.ActivityDailyLogin, "login")
	require.NoError(t, err)
	assert.Equal(t, "Pro", res.Progression.LevelName)
	assert.Empty(t, res.NewBadges)
	assert.Equal(t, 100.0, res.ProgressPct)
}

func TestAwardDirectXP_RejectsCourseActivities(t *testing.T) {
	f := setup()
	ctx := context.Background()
	user := uuid.New()

	for _, typ := range []gamification.ActivityType{gamification.ActivityCourseStarted, gamification.ActivityCourseCompletion} {
		_, err := f.engine.AwardDirectXP(ctx, user, 50, typ, "Completed course: Resume Writing 101")
		require.Error(t, err, string(typ))
		assert.True(t, gamification.IsValidation(err))
		assert.ErrorIs(t, err, gamification.ErrCourseActivity)
	}
	acts, err := f.store.ListActivities(ctx, user, gamification.QueryOpts{})
	require.NoError(t, err)
	assert.Empty(t, acts)
	assert.Empty(t, f.notes.kinds())

	res, err := f.engine.AwardDirectXP(ctx, user, 25, gamification.ActivityApplicationSubmitted, "Applied to Acme")
	require.NoError(t, err)
	assert.Equal(t, 25, res.Progression.TotalXP)
}

func TestFetchStats_StreakLongerThanFirstScan(t *testing.T) {
	f := setup()
	ctx := context.Background()
	user := uuid.New()

	now := f.clock.Now()
	for i := 0; i < 90; i++ {
		require.NoError(t, f.store.AppendActivity(ctx, &gamification.XPActivity{
			ID: uuid.New(), UserID: user, Type: gamification.ActivityDailyLogin,
			Description: "Daily login", XPEarned: 5, OccurredAt: now.AddDate(0, 0, -i),
		}))
	}
	// A stale day beyond a gap must not extend the run.
	require.NoError(t, f.store.AppendActivity(ctx, &gamification.XPActivity{
		ID: uuid.New(), UserID: user, Type: gamification.ActivityDailyLogin,
		Description: "Daily login", XPEarned: 5, OccurredAt: now.AddDate(0, 0, -95),
	}))

	stats, err := f.engine.FetchStats(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 90, stats.StreakDays)
}
