package main

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/internlink/backend/internal/config"
	"github.com/internlink/backend/internal/gamification"
	"github.com/internlink/backend/internal/lock"
	"github.com/internlink/backend/internal/logger"
	"github.com/internlink/backend/internal/store"
	"github.com/internlink/backend/internal/store/memory"
)

// app is everything a command needs to act on learner progression.
type app struct {
	store   gamification.Store
	engine  *gamification.Engine
	courses *gamification.CourseService
	rdb     *goredis.Client
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn("close", "error", err)
		}
	}
}

func openStore(ctx context.Context, c config.DatabaseConfig, log *logger.Logger) (gamification.Store, func() error, error) {
	if c.Driver == config.DriverMemory {
		log.Warn("using in-memory store; data is lost on exit")
		return memory.New(), func() error { return nil }, nil
	}
	s, err := store.Open(c.Driver, c.URL, log)
	if err != nil {
		return nil, nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, nil, err
	}
	return s, s.Close, nil
}

func openRedis(ctx context.Context, c config.RedisConfig) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// buildApp opens the store (and Redis when configured) and wires the engine
// from the progression settings. notify, when set, builds the delivery
// notifier; rdb is nil without Redis.
func buildApp(ctx context.Context, notify func(rdb *goredis.Client) gamification.Notifier) (*app, error) {
	a := &app{}
	st, closeStore, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	a.store = st
	a.closers = append(a.closers, closeStore)

	var locker gamification.Locker
	if cfg.Redis.Addr != "" {
		rdb, err := openRedis(ctx, cfg.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.rdb = rdb
		a.closers = append(a.closers, rdb.Close)
		locker = lock.NewRedisLocker(rdb, "", cfg.Redis.LockTTL)
	}

	levels, err := cfg.LevelTable()
	if err != nil {
		a.Close()
		return nil, err
	}
	badges, err := cfg.BadgeEngine()
	if err != nil {
		a.Close()
		return nil, err
	}
	xp, err := cfg.XPAmounts()
	if err != nil {
		a.Close()
		return nil, err
	}

	notifiers := gamification.MultiNotifier{gamification.LogNotifier{Log: log.With("component", "notifications")}}
	if notify != nil {
		notifiers = append(notifiers, notify(a.rdb))
	}
	a.engine = gamification.NewEngine(st,
		gamification.WithLevelTable(levels),
		gamification.WithBadgeEngine(badges),
		gamification.WithXPAmounts(xp),
		gamification.WithWeeklyGoal(cfg.Progression.WeeklyGoal),
		gamification.WithNotifier(notifiers),
		gamification.WithLogger(log),
	)
	a.courses = gamification.NewCourseService(a.engine, gamification.NewCompletionGuard(locker, st, log))
	return a, nil
}
