package store

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/internlink/backend/internal/gamification"
)

func (s *Store) AppendActivity(ctx context.Context, a *gamification.XPActivity) error {
	row := activityToRow(a)
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) SumXP(ctx context.Context, userID uuid.UUID) (int, error) {
	var total int
	err := s.db.WithContext(ctx).
		Model(&xpActivityRow{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(xp_earned), 0)").
		Scan(&total).Error
	return total, err
}

func (s *Store) ActivityCounts(ctx context.Context, userID uuid.UUID) (map[gamification.ActivityType]int, error) {
	var rows []struct {
		ActivityType string
		N            int
	}
	err := s.db.WithContext(ctx).
		Model(&xpActivityRow{}).
		Where("user_id = ?", userID).
		Select("activity_type, COUNT(*) AS n").
		Group("activity_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[gamification.ActivityType]int, len(rows))
	for _, r := range rows {
		counts[gamification.ActivityType(r.ActivityType)] = r.N
	}
	return counts, nil
}

// ActivityDays buckets timestamps in Go rather than SQL so both drivers
// agree on UTC day boundaries.
func (s *Store) ActivityDays(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error) {
	q := s.db.WithContext(ctx).Model(&xpActivityRow{}).Where("user_id = ?", userID)
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since.UTC())
	}
	var stamps []time.Time
	if err := q.Order("created_at DESC").Pluck("created_at", &stamps).Error; err != nil {
		return nil, err
	}
	seen := make(map[time.Time]bool)
	days := make([]time.Time, 0, len(stamps))
	for _, ts := range stamps {
		y, m, d := ts.UTC().Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	return days, nil
}

func (s *Store) ListActivities(ctx context.Context, userID uuid.UUID, opts gamification.QueryOpts) ([]gamification.XPActivity, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if !opts.From.IsZero() {
		q = q.Where("created_at >= ?", opts.From.UTC())
	}
	if !opts.To.IsZero() {
		q = q.Where("created_at <= ?", opts.To.UTC())
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	var rows []xpActivityRow
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]gamification.XPActivity, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
