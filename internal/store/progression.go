package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/internlink/backend/internal/gamification"
)

// LockProgression inserts the initial row if the user has none, then reads
// it back with SELECT ... FOR UPDATE. sqlite ignores the locking clause; its
// single connection already serializes writers.
func (s *Store) LockProgression(ctx context.Context, userID uuid.UUID, initial gamification.UserProgression) (*gamification.UserProgression, error) {
	initial.UserID = userID
	seed := progressionToRow(&initial)
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seed).Error; err != nil {
		return nil, err
	}
	var row progressionRow
	if err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Take(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return row.toDomain(), nil
}

func (s *Store) GetProgression(ctx context.Context, userID uuid.UUID) (*gamification.UserProgression, error) {
	var row progressionRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return row.toDomain(), nil
}

func (s *Store) SaveProgression(ctx context.Context, p *gamification.UserProgression) error {
	row := progressionToRow(p)
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_xp", "current_level", "level_name", "updated_at"}),
		}).
		Create(&row).Error
}
