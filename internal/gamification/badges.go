package gamification

import (
	"errors"
	"fmt"
)

// BadgeContext is the snapshot badge rules are evaluated against. It is
// taken inside the award transaction, after the new ledger entry is counted.
type BadgeContext struct {
	TotalXP        int
	Level          int
	ActivityType   ActivityType
	ActivityCounts map[ActivityType]int
	StreakDays     int
}

// TotalActivities returns the number of ledger entries across all types.
func (c BadgeContext) TotalActivities() int {
	n := 0
	for _, v := range c.ActivityCounts {
		n += v
	}
	return n
}

// BadgeRule describes a single earnable badge.
type BadgeRule struct {
	Type        string
	Name        string
	Description string
	Icon        string
	// Condition reports whether the badge should be awarded for the snapshot.
	Condition func(BadgeContext) bool
}

// BadgeMetric names the BadgeContext value a configured rule thresholds on.
type BadgeMetric string

const (
	MetricTotalXP       BadgeMetric = "total_xp"
	MetricLevel         BadgeMetric = "level"
	MetricActivityCount BadgeMetric = "activity_count"
	MetricStreakDays    BadgeMetric = "streak_days"
)

// BadgeRuleConfig is the declarative form of a BadgeRule. An activity_count
// rule with an empty ActivityType counts activities of every type.
type BadgeRuleConfig struct {
	Type         string       `yaml:"type" validate:"required"`
	Name         string       `yaml:"name" validate:"required"`
	Description  string       `yaml:"description"`
	Icon         string       `yaml:"icon"`
	Metric       BadgeMetric  `yaml:"metric" validate:"required,oneof=total_xp level activity_count streak_days"`
	ActivityType ActivityType `yaml:"activity_type"`
	Threshold    int          `yaml:"threshold" validate:"gte=1"`
}

// DefaultBadgeRuleConfigs returns the platform's badge set in evaluation order.
func DefaultBadgeRuleConfigs() []BadgeRuleConfig {
	return []BadgeRuleConfig{
		{Type: "first_steps", Name: "First Steps", Description: "Earn your first XP", Icon: "footprints",
			Metric: MetricActivityCount, Threshold: 1},
		{Type: "course_starter", Name: "Course Starter", Description: "Start your first course", Icon: "book-open",
			Metric: MetricActivityCount, ActivityType: ActivityCourseStarted, Threshold: 1},
		{Type: "first_completion", Name: "Finisher", Description: "Complete your first course", Icon: "check-circle",
			Metric: MetricActivityCount, ActivityType: ActivityCourseCompletion, Threshold: 1},
		{Type: "dedicated_learner", Name: "Dedicated Learner", Description: "Complete 5 courses", Icon: "graduation-cap",
			Metric: MetricActivityCount, ActivityType: ActivityCourseCompletion, Threshold: 5},
		{Type: "rising_star", Name: "Rising Star", Description: "Reach level 3", Icon: "star",
			Metric: MetricLevel, Threshold: 3},
		{Type: "xp_hunter", Name: "XP Hunter", Description: "Earn 500 XP", Icon: "zap",
			Metric: MetricTotalXP, Threshold: 500},
		{Type: "legend", Name: "Legend", Description: "Reach the top level", Icon: "crown",
			Metric: MetricLevel, Threshold: 6},
		{Type: "on_fire", Name: "On Fire", Description: "Be active 3 days in a row", Icon: "flame",
			Metric: MetricStreakDays, Threshold: 3},
		{Type: "week_warrior", Name: "Week Warrior", Description: "Be active 7 days in a row", Icon: "calendar",
			Metric: MetricStreakDays, Threshold: 7},
	}
}

// CompileBadgeRules turns configs into rules, preserving order. Badge types
// must be unique.
func CompileBadgeRules(cfgs []BadgeRuleConfig) ([]BadgeRule, error) {
	seen := make(map[string]bool, len(cfgs))
	rules := make([]BadgeRule, 0, len(cfgs))
	for i, c := range cfgs {
		if c.Type == "" {
			return nil, fmt.Errorf("badge rule %d: type is required", i)
		}
		if seen[c.Type] {
			return nil, fmt.Errorf("badge rule %q: duplicate type", c.Type)
		}
		seen[c.Type] = true
		if c.Threshold < 1 {
			return nil, fmt.Errorf("badge rule %q: threshold must be at least 1", c.Type)
		}
		cond, err := compileCondition(c)
		if err != nil {
			return nil, fmt.Errorf("badge rule %q: %w", c.Type, err)
		}
		name := c.Name
		if name == "" {
			name = c.Type
		}
		rules = append(rules, BadgeRule{
			Type:        c.Type,
			Name:        name,
			Description: c.Description,
			Icon:        c.Icon,
			Condition:   cond,
		})
	}
	return rules, nil
}

func compileCondition(c BadgeRuleConfig) (func(BadgeContext) bool, error) {
	n := c.Threshold
	switch c.Metric {
	case MetricTotalXP:
		return func(bc BadgeContext) bool { return bc.TotalXP >= n }, nil
	case MetricLevel:
		return func(bc BadgeContext) bool { return bc.Level >= n }, nil
	case MetricStreakDays:
		return func(bc BadgeContext) bool { return bc.StreakDays >= n }, nil
	case MetricActivityCount:
		if c.ActivityType == "" {
			return func(bc BadgeContext) bool { return bc.TotalActivities() >= n }, nil
		}
		if !c.ActivityType.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownActivity, c.ActivityType)
		}
		at := c.ActivityType
		return func(bc BadgeContext) bool { return bc.ActivityCounts[at] >= n }, nil
	case "":
		return nil, errors.New("metric is required")
	default:
		return nil, fmt.Errorf("unknown metric %q", c.Metric)
	}
}

// BadgeEngine holds the ordered rule registry and evaluates which badges a
// snapshot newly earns.
type BadgeEngine struct {
	rules []BadgeRule
}

// NewBadgeEngine creates an engine over rules, evaluated in slice order.
func NewBadgeEngine(rules []BadgeRule) *BadgeEngine {
	cp := make([]BadgeRule, len(rules))
	copy(cp, rules)
	return &BadgeEngine{rules: cp}
}

// DefaultBadgeEngine creates an engine pre-loaded with the default badge set.
func DefaultBadgeEngine() *BadgeEngine {
	rules, err := CompileBadgeRules(DefaultBadgeRuleConfigs())
	if err != nil {
		panic(err)
	}
	return NewBadgeEngine(rules)
}

// Rules returns a shallow copy of the registered rules.
func (e *BadgeEngine) Rules() []BadgeRule {
	out := make([]BadgeRule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate returns every rule not in held whose condition passes, in
// registry order. One rule's outcome never affects another's.
func (e *BadgeEngine) Evaluate(bc BadgeContext, held map[string]bool) []BadgeRule {
	var earned []BadgeRule
	for _, r := range e.rules {
		if held[r.Type] {
			continue
		}
		if r.Condition(bc) {
			earned = append(earned, r)
		}
	}
	return earned
}
