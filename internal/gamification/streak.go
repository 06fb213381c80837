package gamification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// streakWindowDays is how far back the first streak scan reads.
const streakWindowDays = 35

// utcDay truncates t to midnight UTC.
func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// currentStreak counts consecutive UTC calendar days with activity, ending
// today or yesterday relative to now. A run that last saw activity before
// yesterday is broken and counts 0. days may be unordered and contain
// duplicates.
func currentStreak(days []time.Time, now time.Time) int {
	if len(days) == 0 {
		return 0
	}
	active := make(map[time.Time]bool, len(days))
	for _, d := range days {
		active[utcDay(d)] = true
	}

	cursor := utcDay(now)
	if !active[cursor] {
		cursor = cursor.AddDate(0, 0, -1)
		if !active[cursor] {
			return 0
		}
	}
	streak := 0
	for active[cursor] {
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}

// streakDays computes the user's current streak from a bounded window of
// the ledger. The window widens only while the run reaches its first day.
func streakDays(ctx context.Context, s Store, userID uuid.UUID, now time.Time) (int, error) {
	today := utcDay(now)
	for window := streakWindowDays; ; window *= 4 {
		days, err := s.ActivityDays(ctx, userID, today.AddDate(0, 0, -window))
		if err != nil {
			return 0, err
		}
		// The window holds window+1 days; a run of window days or more may
		// continue before it.
		if streak := currentStreak(days, now); streak < window {
			return streak, nil
		}
	}
}

// weekStart returns the most recent Sunday 00:00 UTC at or before now.
func weekStart(now time.Time) time.Time {
	day := utcDay(now)
	return day.AddDate(0, 0, -int(day.Weekday()))
}
