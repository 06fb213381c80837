package gamification

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/internlink/backend/internal/logger"
)

type countNotifier struct{ n int }

func (c *countNotifier) Notify(context.Context, uuid.UUID, Notification) { c.n++ }

func TestMultiNotifier_FansOut(t *testing.T) {
	a, b := &countNotifier{}, &countNotifier{}
	m := MultiNotifier{a, NopNotifier{}, b}
	m.Notify(context.Background(), uuid.New(), Notification{Kind: KindXPEarned})
	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := LogNotifier{Log: &logger.Logger{SugaredLogger: zap.New(core).Sugar()}}
	n.Notify(context.Background(), uuid.New(), levelUpNotification(UserProgression{CurrentLevel: 3, LevelName: "Achiever"}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "level_up", logs.All()[0].ContextMap()["kind"])
}

func TestNotificationText(t *testing.T) {
	c := Course{Title: "Resume Writing 101"}
	cases := []struct {
		got  Notification
		want string
	}{
		{xpEarnedNotification(XPActivity{XPEarned: 10, Description: "Daily login"}), "You earned 10 XP for Daily login"},
		{courseStartedNotification(c, 10), `You've started "Resume Writing 101" and earned 10 XP!`},
		{courseCompletedNotification(c, 50), `Congratulations! You completed "Resume Writing 101" and earned 50 XP!`},
		{levelUpNotification(UserProgression{CurrentLevel: 2, LevelName: "Explorer"}), "You reached level 2: Explorer"},
		{courseFailedNotification(), "Failed to complete course. Please try again."},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.got.Description, string(tc.got.Kind))
	}
}
