// Package seed loads the course catalog and simulates a demo learner.
package seed

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/internlink/backend/internal/gamification"
	"github.com/internlink/backend/internal/logger"
)

// catalogNamespace derives stable course IDs from titles so seeding twice
// updates rows instead of duplicating them.
var catalogNamespace = uuid.MustParse("6f1d8a3e-3c1b-4f5e-9a57-2b8c0c7e4d10")

func CourseID(title string) uuid.UUID {
	return uuid.NewSHA1(catalogNamespace, []byte(title))
}

func course(title, desc, difficulty, category string, hours int) gamification.Course {
	return gamification.Course{
		ID:              CourseID(title),
		Title:           title,
		Description:     desc,
		EstimatedHours:  hours,
		DifficultyLevel: difficulty,
		Category:        category,
		IsActive:        true,
	}
}

// DefaultCatalog is used when the configuration lists no courses.
func DefaultCatalog() []gamification.Course {
	return []gamification.Course{
		course("Resume Writing 101", "Structure a resume recruiters actually read.", "Beginner", "Career Skills", 2),
		course("Interview Preparation", "Behavioral and technical interview practice.", "Beginner", "Career Skills", 4),
		course("Advanced React Patterns", "Take your React skills to the next level.", "Advanced", "Frontend", 8),
		course("SQL for Analysts", "Joins, window functions and query plans.", "Intermediate", "Data", 6),
		course("Networking on LinkedIn", "Build a professional network that helps you land roles.", "Beginner", "Career Skills", 1),
		course("Intro to Product Management", "Roadmaps, user research and prioritization.", "Intermediate", "Product", 5),
	}
}

// Catalog upserts courses into the store. Courses without an ID get one
// derived from their title.
func Catalog(ctx context.Context, store gamification.Store, courses []gamification.Course, log *logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}
	if len(courses) == 0 {
		courses = DefaultCatalog()
	}
	return store.WithinTx(ctx, func(tx gamification.Store) error {
		for i := range courses {
			c := courses[i]
			if c.ID == uuid.Nil {
				c.ID = CourseID(c.Title)
			}
			if err := tx.UpsertCourse(ctx, &c); err != nil {
				return fmt.Errorf("upsert course %q: %w", c.Title, err)
			}
			log.Debug("seeded course", "course_id", c.ID, "title", c.Title)
		}
		log.Info("course catalog seeded", "count", len(courses))
		return nil
	})
}
