package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentOf(t *testing.T) {
	cases := []struct {
		part, whole int
		want        float64
	}{
		{0, 200, 0},
		{50, 200, 25},
		{200, 200, 100},
		{450, 200, 100},
		{10, 0, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, percentOf(tc.part, tc.whole), "percentOf(%d, %d)", tc.part, tc.whole)
	}
}

func TestCourseTotals(t *testing.T) {
	progress := []CourseProgress{
		{Status: CourseNotStarted},
		{Status: CourseInProgress},
		{Status: CourseCompleted},
		{Status: CourseCompleted},
	}
	started, completed := courseTotals(progress)
	assert.Equal(t, 3, started)
	assert.Equal(t, 2, completed)
}

func TestWeekTotals(t *testing.T) {
	xp, n := weekTotals([]XPActivity{{XPEarned: 10}, {XPEarned: 50}})
	assert.Equal(t, 60, xp)
	assert.Equal(t, 2, n)
}
