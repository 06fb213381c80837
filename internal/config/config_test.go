package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/internlink/backend/internal/gamification"
)

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "DATABASE_DRIVER", "DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD", "LOG_MODE", "OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	courseID := uuid.New()
	path := writeFile(t, "config.yaml", `
server:
  port: 9090
  allowed_origins: ["https://app.internlink.io"]
database:
  driver: postgres
  url: postgres://localhost/internlink
progression:
  weekly_goal: 300
  xp:
    daily_login: 8
courses:
  - id: "`+courseID.String()+`"
    title: Resume Writing 101
    estimated_hours: 2
    is_active: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want default 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("Database.Driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Progression.WeeklyGoal != 300 {
		t.Errorf("WeeklyGoal = %d, want 300", cfg.Progression.WeeklyGoal)
	}
	if cfg.Redis.LockTTL != 30*time.Second {
		t.Errorf("Redis.LockTTL = %v, want default 30s", cfg.Redis.LockTTL)
	}
	if len(cfg.Courses) != 1 || cfg.Courses[0].ID != courseID || !cfg.Courses[0].IsActive {
		t.Errorf("Courses = %+v, want the one configured course", cfg.Courses)
	}

	xp, err := cfg.XPAmounts()
	if err != nil {
		t.Fatalf("XPAmounts() error: %v", err)
	}
	if xp[gamification.ActivityDailyLogin] != 8 {
		t.Errorf("daily_login XP = %d, want 8", xp[gamification.ActivityDailyLogin])
	}
	if xp[gamification.ActivityCourseCompletion] != gamification.XPCourseCompletion {
		t.Errorf("course_completion XP = %d, want default %d", xp[gamification.ActivityCourseCompletion], gamification.XPCourseCompletion)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("Load() with missing file should return error")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadOrDefault("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadOrDefault() error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
	levels, err := cfg.LevelTable()
	if err != nil {
		t.Fatalf("LevelTable() error: %v", err)
	}
	if levels.Cap().Name != "Legend" {
		t.Errorf("cap level = %q, want Legend", levels.Cap().Name)
	}
	badges, err := cfg.BadgeEngine()
	if err != nil {
		t.Fatalf("BadgeEngine() error: %v", err)
	}
	if got, want := len(badges.Rules()), len(gamification.DefaultBadgeRuleConfigs()); got != want {
		t.Errorf("badge rules = %d, want %d", got, want)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "bad.yaml", "server: [unclosed")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() with invalid YAML should return error")
	}
	if _, err := LoadOrDefault(path); err == nil {
		t.Fatal("LoadOrDefault() must not hide a parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")
	t.Setenv("DATABASE_DRIVER", "POSTGRES")
	t.Setenv("DATABASE_URL", "postgres://db/internlink")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("LOG_MODE", "prod")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")

	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault() error: %v", err)
	}
	if cfg.Server.Port != 7000 || cfg.Database.Driver != DriverPostgres || cfg.Database.URL != "postgres://db/internlink" {
		t.Errorf("server/database overrides not applied: %+v %+v", cfg.Server, cfg.Database)
	}
	if cfg.Redis.Addr != "redis:6379" || cfg.Logging.Mode != "prod" {
		t.Errorf("redis/logging overrides not applied: %+v %+v", cfg.Redis, cfg.Logging)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.Endpoint != "collector:4318" {
		t.Errorf("tracing overrides not applied: %+v", cfg.Tracing)
	}
	if cfg.Addr() != "0.0.0.0:7000" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
}

func TestEnvOverrideBadValues(t *testing.T) {
	for _, kv := range [][2]string{{"PORT", "eighty"}, {"OTEL_ENABLED", "maybe"}} {
		t.Run(kv[0], func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			if _, err := LoadOrDefault(""); err == nil {
				t.Fatalf("%s=%s should fail", kv[0], kv[1])
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }, "Port"},
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }, "Driver"},
		{"postgres needs url", func(c *Config) { c.Database = DatabaseConfig{Driver: DriverPostgres} }, "URL"},
		{"logging mode", func(c *Config) { c.Logging.Mode = "loud" }, "Mode"},
		{"sample ratio", func(c *Config) { c.Tracing.SampleRatio = 2 }, "SampleRatio"},
		{"weekly goal", func(c *Config) { c.Progression.WeeklyGoal = 0 }, "WeeklyGoal"},
		{"levels", func(c *Config) {
			c.Progression.Levels = []gamification.LevelThreshold{{Level: 1, MinXP: 10, Name: "Late"}}
		}, "progression.levels"},
		{"badge threshold", func(c *Config) {
			c.Progression.Badges = []gamification.BadgeRuleConfig{{Type: "x", Name: "X", Metric: gamification.MetricTotalXP}}
		}, "Threshold"},
		{"duplicate badge", func(c *Config) {
			r := gamification.BadgeRuleConfig{Type: "x", Name: "X", Metric: gamification.MetricTotalXP, Threshold: 1}
			c.Progression.Badges = []gamification.BadgeRuleConfig{r, r}
		}, "progression.badges"},
		{"unknown xp activity", func(c *Config) { c.Progression.XP = map[string]int{"napping": 5} }, "progression.xp"},
		{"zero xp", func(c *Config) { c.Progression.XP = map[string]int{"daily_login": 0} }, "progression.xp"},
		{"course title", func(c *Config) { c.Courses = []gamification.Course{{ID: uuid.New()}} }, "courses[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	if err := defaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	memory := defaultConfig()
	memory.Database = DatabaseConfig{Driver: DriverMemory}
	if err := memory.Validate(); err != nil {
		t.Fatalf("memory driver without url should be valid: %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "INTERNLINK_DOTENV_TEST"
	t.Setenv("INTERNLINK_DOTENV_KEEP", "shell")
	os.Unsetenv(key)
	t.Cleanup(func() { os.Unsetenv(key) })

	path := writeFile(t, ".env", key+"=from-file\nINTERNLINK_DOTENV_KEEP=file\n")
	if err := LoadDotEnv("/nonexistent/.env", path); err != nil {
		t.Fatalf("LoadDotEnv() error: %v", err)
	}
	if got := os.Getenv(key); got != "from-file" {
		t.Errorf("%s = %q, want from-file", key, got)
	}
	if got := os.Getenv("INTERNLINK_DOTENV_KEEP"); got != "shell" {
		t.Errorf("existing variable overridden: %q", got)
	}
}
