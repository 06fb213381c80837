package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/internlink/backend/internal/gamification"
)

func (s *Store) GetCourse(ctx context.Context, courseID uuid.UUID) (*gamification.Course, error) {
	var row courseRow
	if err := s.db.WithContext(ctx).Where("id = ?", courseID).Take(&row).Error; err != nil {
		return nil, notFound(err)
	}
	c := row.toDomain()
	return &c, nil
}

func (s *Store) ListActiveCourses(ctx context.Context) ([]gamification.Course, error) {
	var rows []courseRow
	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]gamification.Course, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) UpsertCourse(ctx context.Context, c *gamification.Course) error {
	row := courseToRow(c)
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "description", "estimated_hours", "difficulty_level", "category", "is_active", "updated_at",
			}),
		}).
		Create(&row).Error
}

func (s *Store) GetCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*gamification.CourseProgress, error) {
	var row courseProgressRow
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Take(&row).Error; err != nil {
		return nil, notFound(err)
	}
	p := row.toDomain()
	return &p, nil
}

func (s *Store) SaveCourseProgress(ctx context.Context, p *gamification.CourseProgress) error {
	row := courseProgressToRow(p)
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "progress_percentage", "started_at", "completed_at", "updated_at",
			}),
		}).
		Create(&row).Error
}

func (s *Store) ListCourseProgress(ctx context.Context, userID uuid.UUID) ([]gamification.CourseProgress, error) {
	var rows []courseProgressRow
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("course_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]gamification.CourseProgress, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
