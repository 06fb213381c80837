package gamification

import (
	"time"

	"github.com/google/uuid"
)

// DefaultWeeklyGoal is the weekly XP target when none is configured.
const DefaultWeeklyGoal = 200

// Stats is the personalized activity summary shown on a learner's dashboard.
// The week runs from Sunday 00:00 UTC.
type Stats struct {
	UserID            uuid.UUID `json:"user_id"`
	WeekStart         time.Time `json:"week_start"`
	WeeklyXP          int       `json:"weekly_xp"`
	WeeklyActivities  int       `json:"weekly_activities"`
	WeeklyGoal        int       `json:"weekly_goal"`
	WeeklyGoalPct     float64   `json:"weekly_goal_pct"` // 0–100
	StreakDays        int       `json:"streak_days"`
	TotalActivities   int       `json:"total_activities"`
	CoursesStarted    int       `json:"courses_started"`
	CoursesCompleted  int       `json:"courses_completed"`
	CompletionRatePct float64   `json:"completion_rate_pct"` // completed / started, 0–100
}

// weekTotals sums XP and counts entries over activities.
func weekTotals(activities []XPActivity) (xp, n int) {
	for _, a := range activities {
		xp += a.XPEarned
	}
	return xp, len(activities)
}

// percentOf returns part/whole as a percentage clamped to [0, 100]. A
// non-positive whole yields 0.
func percentOf(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	pct := float64(part) * 100 / float64(whole)
	return min(max(pct, 0), 100)
}

// courseTotals counts started (in progress or completed) and completed courses.
func courseTotals(progress []CourseProgress) (started, completed int) {
	for _, p := range progress {
		switch p.Status {
		case CourseInProgress:
			started++
		case CourseCompleted:
			started++
			completed++
		}
	}
	return started, completed
}
