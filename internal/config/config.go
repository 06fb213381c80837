package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/internlink/backend/internal/gamification"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Server      ServerConfig          `yaml:"server"`
	Database    DatabaseConfig        `yaml:"database"`
	Redis       RedisConfig           `yaml:"redis"`
	Logging     LoggingConfig         `yaml:"logging"`
	Tracing     TracingConfig         `yaml:"tracing"`
	Progression ProgressionConfig     `yaml:"progression"`
	Courses     []gamification.Course `yaml:"courses"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	Host            string        `yaml:"host"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	MaxConnections  int           `yaml:"max_connections" validate:"min=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"min=0"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=postgres sqlite memory"`
	URL    string `yaml:"url" validate:"required_unless=Driver memory"`
}

// RedisConfig is optional. When Addr is empty completion locks are
// process-local and notifications are not relayed between instances.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"min=0"`
	Channel  string        `yaml:"channel"`
	LockTTL  time.Duration `yaml:"lock_ttl" validate:"min=0"`
}

type LoggingConfig struct {
	Mode string `yaml:"mode" validate:"oneof=dev development prod production test"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio" validate:"min=0,max=1"`
}

type ProgressionConfig struct {
	Levels     []gamification.LevelThreshold  `yaml:"levels"`
	XP         map[string]int                 `yaml:"xp"`
	WeeklyGoal int                            `yaml:"weekly_goal" validate:"min=1"`
	Badges     []gamification.BadgeRuleConfig `yaml:"badges" validate:"dive"`
}

func defaultConfig() *Config {
	xp := make(map[string]int)
	for t, n := range gamification.DefaultXP() {
		xp[string(t)] = n
	}
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			URL:    "internlink.db",
		},
		Redis: RedisConfig{
			Channel: "internlink:notifications",
			LockTTL: 30 * time.Second,
		},
		Logging: LoggingConfig{Mode: "dev"},
		Tracing: TracingConfig{
			ServiceName: "internlink-backend",
			SampleRatio: 1,
		},
		Progression: ProgressionConfig{
			Levels:     gamification.DefaultLevels(),
			XP:         xp,
			WeeklyGoal: gamification.DefaultWeeklyGoal,
			Badges:     gamification.DefaultBadgeRuleConfigs(),
		},
	}
}

// Load reads a YAML file over the defaults, applies environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to defaults when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		cfg, err := Load(path)
		if err == nil || !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}
	cfg := defaultConfig()
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads each existing .env file into the process environment
// without overriding variables that are already set.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func (c *Config) finish() error {
	if err := c.applyEnv(); err != nil {
		return err
	}
	return c.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		c.Database.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("LOG_MODE"); v != "" {
		c.Logging.Mode = v
	}
	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("OTEL_ENABLED: %w", err)
		}
		c.Tracing.Enabled = enabled
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Tracing.Endpoint = v
	}
	return nil
}

// Validate checks struct tags and that the progression settings compile.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.LevelTable(); err != nil {
		return fmt.Errorf("invalid config: progression.levels: %w", err)
	}
	if _, err := c.BadgeEngine(); err != nil {
		return fmt.Errorf("invalid config: progression.badges: %w", err)
	}
	if _, err := c.XPAmounts(); err != nil {
		return fmt.Errorf("invalid config: progression.xp: %w", err)
	}
	for i, course := range c.Courses {
		if strings.TrimSpace(course.Title) == "" {
			return fmt.Errorf("invalid config: courses[%d]: title required", i)
		}
	}
	return nil
}

func (c *Config) LevelTable() (*gamification.LevelTable, error) {
	if len(c.Progression.Levels) == 0 {
		return gamification.DefaultLevelTable(), nil
	}
	return gamification.NewLevelTable(c.Progression.Levels)
}

func (c *Config) BadgeEngine() (*gamification.BadgeEngine, error) {
	if len(c.Progression.Badges) == 0 {
		return gamification.DefaultBadgeEngine(), nil
	}
	rules, err := gamification.CompileBadgeRules(c.Progression.Badges)
	if err != nil {
		return nil, err
	}
	return gamification.NewBadgeEngine(rules), nil
}

// XPAmounts returns the configured per-activity XP. Activities the file
// leaves out keep their default.
func (c *Config) XPAmounts() (map[gamification.ActivityType]int, error) {
	out := gamification.DefaultXP()
	for name, n := range c.Progression.XP {
		t := gamification.ActivityType(name)
		if !t.Valid() {
			return nil, fmt.Errorf("%q: %w", name, gamification.ErrUnknownActivity)
		}
		if n <= 0 {
			return nil, fmt.Errorf("%q: %w", name, gamification.ErrNonPositiveAmount)
		}
		out[t] = n
	}
	return out, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
