package gamification

import (
	"time"

	"github.com/google/uuid"
)

// UserProgression is the derived per-user aggregate. TotalXP always equals
// the sum of the user's ledger entries once a transaction commits.
type UserProgression struct {
	UserID       uuid.UUID `json:"user_id"`
	TotalXP      int       `json:"total_xp"`
	CurrentLevel int       `json:"current_level"`
	LevelName    string    `json:"level_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// zeroProgression is the state of a user with no ledger entries.
func zeroProgression(userID uuid.UUID, table *LevelTable) UserProgression {
	first := table.LevelForXP(0)
	return UserProgression{UserID: userID, CurrentLevel: first.Level, LevelName: first.Name}
}

// Badge is an award held by a user. A user holds each badge type at most once.
type Badge struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Type        string    `json:"badge_type"`
	Name        string    `json:"badge_name"`
	Description string    `json:"badge_description"`
	Icon        string    `json:"badge_icon,omitempty"`
	EarnedAt    time.Time `json:"earned_at"`
}

// CourseStatus is the per-user lifecycle state of a course.
type CourseStatus string

const (
	CourseNotStarted CourseStatus = "not_started"
	CourseInProgress CourseStatus = "in_progress"
	CourseCompleted  CourseStatus = "completed"
)

// Course is a catalog entry.
type Course struct {
	ID              uuid.UUID `json:"id" yaml:"id"`
	Title           string    `json:"title" yaml:"title"`
	Description     string    `json:"description" yaml:"description"`
	EstimatedHours  int       `json:"estimated_hours" yaml:"estimated_hours"`
	DifficultyLevel string    `json:"difficulty_level" yaml:"difficulty_level"`
	Category        string    `json:"category" yaml:"category"`
	IsActive        bool      `json:"is_active" yaml:"is_active"`
}

// CourseProgress tracks one user's progress through one course. Once Status
// is CourseCompleted it never changes again.
type CourseProgress struct {
	UserID             uuid.UUID    `json:"user_id"`
	CourseID           uuid.UUID    `json:"course_id"`
	Status             CourseStatus `json:"status"`
	ProgressPercentage int          `json:"progress_percentage"`
	StartedAt          *time.Time   `json:"started_at,omitempty"`
	CompletedAt        *time.Time   `json:"completed_at,omitempty"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// CourseWithProgress joins a catalog entry with the caller's progress.
type CourseWithProgress struct {
	Course
	Progress *CourseProgress `json:"progress,omitempty"`
}
