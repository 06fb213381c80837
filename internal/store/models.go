package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/internlink/backend/internal/gamification"
)

type activityMeta struct {
	SubjectID *uuid.UUID `json:"subject_id,omitempty"`
}

type xpActivityRow struct {
	ID                  uuid.UUID                        `gorm:"type:uuid;primaryKey"`
	UserID              uuid.UUID                        `gorm:"type:uuid;not null;index:idx_xp_user_created,priority:1"`
	ActivityType        string                           `gorm:"column:activity_type;not null"`
	ActivityDescription string                           `gorm:"column:activity_description;not null"`
	XPEarned            int                              `gorm:"column:xp_earned;not null"`
	Metadata            datatypes.JSONType[activityMeta] `gorm:"column:metadata"`
	CreatedAt           time.Time                        `gorm:"column:created_at;not null;autoCreateTime:false;index:idx_xp_user_created,priority:2"`
}

func (xpActivityRow) TableName() string { return "xp_activities" }

func activityToRow(a *gamification.XPActivity) xpActivityRow {
	return xpActivityRow{
		ID:                  a.ID,
		UserID:              a.UserID,
		ActivityType:        string(a.Type),
		ActivityDescription: a.Description,
		XPEarned:            a.XPEarned,
		Metadata:            datatypes.NewJSONType(activityMeta{SubjectID: a.SubjectID}),
		CreatedAt:           a.OccurredAt.UTC(),
	}
}

func (r xpActivityRow) toDomain() gamification.XPActivity {
	return gamification.XPActivity{
		ID:          r.ID,
		UserID:      r.UserID,
		Type:        gamification.ActivityType(r.ActivityType),
		Description: r.ActivityDescription,
		XPEarned:    r.XPEarned,
		SubjectID:   r.Metadata.Data().SubjectID,
		OccurredAt:  r.CreatedAt.UTC(),
	}
}

type progressionRow struct {
	UserID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	TotalXP      int       `gorm:"column:total_xp;not null;default:0"`
	CurrentLevel int       `gorm:"column:current_level;not null;default:1"`
	LevelName    string    `gorm:"column:level_name;not null"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime:false"`
}

func (progressionRow) TableName() string { return "user_gamification" }

func progressionToRow(p *gamification.UserProgression) progressionRow {
	return progressionRow{
		UserID:       p.UserID,
		TotalXP:      p.TotalXP,
		CurrentLevel: p.CurrentLevel,
		LevelName:    p.LevelName,
		CreatedAt:    p.CreatedAt.UTC(),
		UpdatedAt:    p.UpdatedAt.UTC(),
	}
}

func (r progressionRow) toDomain() *gamification.UserProgression {
	return &gamification.UserProgression{
		UserID:       r.UserID,
		TotalXP:      r.TotalXP,
		CurrentLevel: r.CurrentLevel,
		LevelName:    r.LevelName,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type badgeRow struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge_type,priority:1"`
	BadgeType        string    `gorm:"column:badge_type;not null;uniqueIndex:idx_user_badge_type,priority:2"`
	BadgeName        string    `gorm:"column:badge_name;not null"`
	BadgeDescription string    `gorm:"column:badge_description"`
	BadgeIcon        string    `gorm:"column:badge_icon"`
	EarnedAt         time.Time `gorm:"column:earned_at;not null"`
}

func (badgeRow) TableName() string { return "user_badges" }

func badgeToRow(b *gamification.Badge) badgeRow {
	return badgeRow{
		ID:               b.ID,
		UserID:           b.UserID,
		BadgeType:        b.Type,
		BadgeName:        b.Name,
		BadgeDescription: b.Description,
		BadgeIcon:        b.Icon,
		EarnedAt:         b.EarnedAt.UTC(),
	}
}

func (r badgeRow) toDomain() gamification.Badge {
	return gamification.Badge{
		ID:          r.ID,
		UserID:      r.UserID,
		Type:        r.BadgeType,
		Name:        r.BadgeName,
		Description: r.BadgeDescription,
		Icon:        r.BadgeIcon,
		EarnedAt:    r.EarnedAt.UTC(),
	}
}

type courseRow struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title           string    `gorm:"column:title;not null"`
	Description     string    `gorm:"column:description"`
	EstimatedHours  int       `gorm:"column:estimated_hours;not null;default:0"`
	DifficultyLevel string    `gorm:"column:difficulty_level"`
	Category        string    `gorm:"column:category;index"`
	IsActive        bool      `gorm:"column:is_active;not null;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (courseRow) TableName() string { return "courses" }

func courseToRow(c *gamification.Course) courseRow {
	return courseRow{
		ID:              c.ID,
		Title:           c.Title,
		Description:     c.Description,
		EstimatedHours:  c.EstimatedHours,
		DifficultyLevel: c.DifficultyLevel,
		Category:        c.Category,
		IsActive:        c.IsActive,
	}
}

func (r courseRow) toDomain() gamification.Course {
	return gamification.Course{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		EstimatedHours:  r.EstimatedHours,
		DifficultyLevel: r.DifficultyLevel,
		Category:        r.Category,
		IsActive:        r.IsActive,
	}
}

type courseProgressRow struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID             uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_course,priority:1"`
	CourseID           uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_course,priority:2"`
	Status             string     `gorm:"column:status;not null"`
	ProgressPercentage int        `gorm:"column:progress_percentage;not null;default:0"`
	StartedAt          *time.Time `gorm:"column:started_at"`
	CompletedAt        *time.Time `gorm:"column:completed_at"`
	UpdatedAt          time.Time  `gorm:"not null;autoUpdateTime:false"`
}

func (courseProgressRow) TableName() string { return "user_course_progress" }

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func courseProgressToRow(p *gamification.CourseProgress) courseProgressRow {
	return courseProgressRow{
		ID:                 uuid.New(),
		UserID:             p.UserID,
		CourseID:           p.CourseID,
		Status:             string(p.Status),
		ProgressPercentage: p.ProgressPercentage,
		StartedAt:          utcPtr(p.StartedAt),
		CompletedAt:        utcPtr(p.CompletedAt),
		UpdatedAt:          p.UpdatedAt.UTC(),
	}
}

func (r courseProgressRow) toDomain() gamification.CourseProgress {
	return gamification.CourseProgress{
		UserID:             r.UserID,
		CourseID:           r.CourseID,
		Status:             gamification.CourseStatus(r.Status),
		ProgressPercentage: r.ProgressPercentage,
		StartedAt:          utcPtr(r.StartedAt),
		CompletedAt:        utcPtr(r.CompletedAt),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
}
