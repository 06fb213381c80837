package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/internlink/backend/internal/gamification"
)

func (s *Store) ListBadges(ctx context.Context, userID uuid.UUID) ([]gamification.Badge, error) {
	var rows []badgeRow
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("earned_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]gamification.Badge, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// InsertBadge relies on the (user_id, badge_type) unique index: a conflicting
// insert affects no rows and reports false.
func (s *Store) InsertBadge(ctx context.Context, b *gamification.Badge) (bool, error) {
	row := badgeToRow(b)
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_type"}},
			DoNothing: true,
		}).
		Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
