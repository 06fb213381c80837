package gamification

import (
	"errors"
	"fmt"
)

// LevelThreshold maps a cumulative XP floor to a level number and name.
type LevelThreshold struct {
	Level  int    `json:"level" yaml:"level"`
	MinXP  int    `json:"min_xp" yaml:"min_xp"`
	Name   string `json:"name" yaml:"name"`
	Reward string `json:"reward,omitempty" yaml:"reward"`
}

// LevelTable is an immutable, validated sequence of level thresholds ordered
// by ascending MinXP. The last entry is the cap.
type LevelTable struct {
	levels []LevelThreshold
}

// DefaultLevels returns the platform's level thresholds.
func DefaultLevels() []LevelThreshold {
	return []LevelThreshold{
		{Level: 1, MinXP: 0, Name: "Newcomer"},
		{Level: 2, MinXP: 100, Name: "Explorer", Reward: "Profile Badge"},
		{Level: 3, MinXP: 250, Name: "Achiever", Reward: "Advanced Features"},
		{Level: 4, MinXP: 500, Name: "Professional", Reward: "Priority Support"},
		{Level: 5, MinXP: 1000, Name: "Expert", Reward: "Expert Status"},
		{Level: 6, MinXP: 2000, Name: "Legend", Reward: "Legend Title"},
	}
}

// DefaultLevelTable returns a LevelTable built from DefaultLevels.
func DefaultLevelTable() *LevelTable {
	t, err := NewLevelTable(DefaultLevels())
	if err != nil {
		panic(err)
	}
	return t
}

// NewLevelTable validates levels and returns a table holding a copy of them.
// The first threshold must start at 0 XP, MinXP must be strictly increasing
// and levels must be numbered 1..n.
func NewLevelTable(levels []LevelThreshold) (*LevelTable, error) {
	if len(levels) == 0 {
		return nil, errors.New("level table is empty")
	}
	if levels[0].MinXP != 0 {
		return nil, fmt.Errorf("first level must start at 0 XP, got %d", levels[0].MinXP)
	}
	for i, l := range levels {
		if l.Level != i+1 {
			return nil, fmt.Errorf("level at index %d is numbered %d, want %d", i, l.Level, i+1)
		}
		if l.Name == "" {
			return nil, fmt.Errorf("level %d has no name", l.Level)
		}
		if i > 0 && l.MinXP <= levels[i-1].MinXP {
			return nil, fmt.Errorf("level %d min_xp %d is not above level %d min_xp %d",
				l.Level, l.MinXP, levels[i-1].Level, levels[i-1].MinXP)
		}
	}
	cp := make([]LevelThreshold, len(levels))
	copy(cp, levels)
	return &LevelTable{levels: cp}, nil
}

// Levels returns a copy of the thresholds.
func (t *LevelTable) Levels() []LevelThreshold {
	out := make([]LevelThreshold, len(t.levels))
	copy(out, t.levels)
	return out
}

// Cap returns the highest defined level.
func (t *LevelTable) Cap() LevelThreshold {
	return t.levels[len(t.levels)-1]
}

// LevelForXP returns the highest threshold whose MinXP is at most totalXP.
// Negative XP is treated as 0.
func (t *LevelTable) LevelForXP(totalXP int) LevelThreshold {
	totalXP = max(totalXP, 0)
	cur := t.levels[0]
	for _, l := range t.levels[1:] {
		if totalXP < l.MinXP {
			break
		}
		cur = l
	}
	return cur
}

// ProgressToNextLevel returns how far totalXP is through the current level,
// as a percentage in [0, 100]. At the cap it is always 100.
func (t *LevelTable) ProgressToNextLevel(totalXP int) float64 {
	totalXP = max(totalXP, 0)
	cur := t.LevelForXP(totalXP)
	if cur.Level >= t.Cap().Level {
		return 100
	}
	next := t.levels[cur.Level]
	pct := float64(totalXP-cur.MinXP) * 100 / float64(next.MinXP-cur.MinXP)
	return min(max(pct, 0), 100)
}

// XPToNextLevel returns the XP still needed to reach the next level, or 0 at
// the cap.
func (t *LevelTable) XPToNextLevel(totalXP int) int {
	totalXP = max(totalXP, 0)
	cur := t.LevelForXP(totalXP)
	if cur.Level >= t.Cap().Level {
		return 0
	}
	return t.levels[cur.Level].MinXP - totalXP
}

// NextReward returns the threshold of the level after the one totalXP sits in.
// It reports false at the cap.
func (t *LevelTable) NextReward(totalXP int) (LevelThreshold, bool) {
	cur := t.LevelForXP(totalXP)
	if cur.Level >= t.Cap().Level {
		return LevelThreshold{}, false
	}
	return t.levels[cur.Level], true
}
