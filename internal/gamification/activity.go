package gamification

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType tags the user action an XP ledger entry was earned for.
type ActivityType string

const (
	ActivityCourseStarted        ActivityType = "course_started"
	ActivityCourseCompletion     ActivityType = "course_completion"
	ActivityApplicationSubmitted ActivityType = "application_submitted"
	ActivityProfileCompleted     ActivityType = "profile_completed"
	ActivityDailyLogin           ActivityType = "daily_login"
)

// XP award amounts used when the configuration does not override them.
const (
	XPCourseStarted        = 10
	XPCourseCompletion     = 50
	XPApplicationSubmitted = 25
	XPProfileCompleted     = 30
	XPDailyLogin           = 5
)

// ActivityTypes returns every known activity type in a stable order.
func ActivityTypes() []ActivityType {
	return []ActivityType{
		ActivityCourseStarted,
		ActivityCourseCompletion,
		ActivityApplicationSubmitted,
		ActivityProfileCompleted,
		ActivityDailyLogin,
	}
}

// Valid reports whether t is one of the known activity types.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityCourseStarted, ActivityCourseCompletion, ActivityApplicationSubmitted,
		ActivityProfileCompleted, ActivityDailyLogin:
		return true
	}
	return false
}

// CourseBound reports whether t is earned only through the course
// lifecycle, where the completion guard applies.
func (t ActivityType) CourseBound() bool {
	return t == ActivityCourseStarted || t == ActivityCourseCompletion
}

// DefaultXP returns the built-in XP amount for each activity type.
func DefaultXP() map[ActivityType]int {
	return map[ActivityType]int{
		ActivityCourseStarted:        XPCourseStarted,
		ActivityCourseCompletion:     XPCourseCompletion,
		ActivityApplicationSubmitted: XPApplicationSubmitted,
		ActivityProfileCompleted:     XPProfileCompleted,
		ActivityDailyLogin:           XPDailyLogin,
	}
}

// XPActivity is a single immutable XP ledger entry.
type XPActivity struct {
	ID          uuid.UUID    `json:"id"`
	UserID      uuid.UUID    `json:"user_id"`
	Type        ActivityType `json:"activity_type"`
	Description string       `json:"activity_description"`
	XPEarned    int          `json:"xp_earned"`
	// SubjectID names the entity the activity concerns (e.g. a course), if any.
	SubjectID  *uuid.UUID `json:"subject_id,omitempty"`
	OccurredAt time.Time  `json:"created_at"`
}

// QueryOpts filters ledger reads.
type QueryOpts struct {
	Limit int       // max results (0 = unlimited)
	From  time.Time // occurred_at >= From
	To    time.Time // occurred_at <= To
}
