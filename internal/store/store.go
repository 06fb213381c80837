// Package store persists progression data with gorm. Postgres is the
// production driver; sqlite serves local development and tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/internlink/backend/internal/gamification"
	"github.com/internlink/backend/internal/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store implements gamification.Store. A Store produced by WithinTx is bound
// to that transaction.
type Store struct {
	db   *gorm.DB
	log  *logger.Logger
	inTx bool
}

var _ gamification.Store = (*Store)(nil)

// gormWriter routes gorm's own log lines into zap.
type gormWriter struct{ log *logger.Logger }

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.SugaredLogger.Warnf(format, args...)
}

// Open connects to the database for driver and dsn.
func Open(driver, dsn string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	gormLog := gormLogger.New(
		gormWriter{log: log.With("component", "gorm")},
		gormLogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// sqlite allows one writer; a single connection also keeps an
		// in-memory database shared by every caller.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return New(db, log), nil
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{db: db, log: log.With("component", "store")}
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB { return s.db }

// Migrate creates or updates every table the service uses.
func (s *Store) Migrate(ctx context.Context) error {
	s.log.Info("auto migrating tables")
	if err := s.db.WithContext(ctx).AutoMigrate(
		&xpActivityRow{},
		&progressionRow{},
		&badgeRow{},
		&courseRow{},
		&courseProgressRow{},
	); err != nil {
		s.log.Error("auto migration failed", "error", err)
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WithinTx runs fn in a database transaction. Nested calls join the
// enclosing transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(gamification.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, log: s.log, inTx: true})
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return gamification.ErrNotFound
	}
	return err
}
