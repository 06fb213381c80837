package gamification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/internlink/backend/internal/logger"
)

// NotificationKind identifies a user-facing toast.
type NotificationKind string

const (
	KindXPEarned        NotificationKind = "xp_earned"
	KindLevelUp         NotificationKind = "level_up"
	KindBadgeEarned     NotificationKind = "badge_earned"
	KindCourseStarted   NotificationKind = "course_started"
	KindCourseCompleted NotificationKind = "course_completed"
	KindCourseFailed    NotificationKind = "course_failed"
)

// Notification is a transient message for the user. Delivery is
// best-effort; nothing depends on it arriving.
type Notification struct {
	Kind        NotificationKind `json:"kind"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Payload     any              `json:"payload,omitempty"`
}

// Notifier delivers notifications. Implementations must not block the caller
// for long and must not fail it: errors are theirs to log.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, n Notification)
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, uuid.UUID, Notification) {}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	Log *logger.Logger
}

func (n LogNotifier) Notify(_ context.Context, userID uuid.UUID, msg Notification) {
	n.Log.Info("notification", "user_id", userID, "kind", string(msg.Kind), "title", msg.Title)
}

// MultiNotifier fans a notification out to every wrapped notifier in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, userID uuid.UUID, n Notification) {
	for _, nt := range m {
		nt.Notify(ctx, userID, n)
	}
}

func xpEarnedNotification(a XPActivity) Notification {
	return Notification{
		Kind:        KindXPEarned,
		Title:       "XP Earned!",
		Description: fmt.Sprintf("You earned %d XP for %s", a.XPEarned, a.Description),
		Payload:     a,
	}
}

func levelUpNotification(p UserProgression) Notification {
	return Notification{
		Kind:        KindLevelUp,
		Title:       "Level Up!",
		Description: fmt.Sprintf("You reached level %d: %s", p.CurrentLevel, p.LevelName),
		Payload:     p,
	}
}

func badgeNotification(b Badge) Notification {
	return Notification{
		Kind:        KindBadgeEarned,
		Title:       "Badge Earned!",
		Description: fmt.Sprintf("You earned the %s badge", b.Name),
		Payload:     b,
	}
}

func courseStartedNotification(c Course, xp int) Notification {
	return Notification{
		Kind:        KindCourseStarted,
		Title:       "Course Started!",
		Description: fmt.Sprintf("You've started %q and earned %d XP!", c.Title, xp),
		Payload:     c,
	}
}

func courseCompletedNotification(c Course, xp int) Notification {
	return Notification{
		Kind:        KindCourseCompleted,
		Title:       "Course Completed!",
		Description: fmt.Sprintf("Congratulations! You completed %q and earned %d XP!", c.Title, xp),
		Payload:     c,
	}
}

func courseFailedNotification() Notification {
	return Notification{
		Kind:        KindCourseFailed,
		Title:       "Error",
		Description: "Failed to complete course. Please try again.",
	}
}
