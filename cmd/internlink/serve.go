package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/internlink/backend/internal/api"
	"github.com/internlink/backend/internal/gamification"
	"github.com/internlink/backend/internal/observability"
	"github.com/internlink/backend/internal/seed"
	"github.com/internlink/backend/internal/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and notification websocket",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "Override server port")
	serveCmd.Flags().Bool("demo", false, "Simulate a demo learner earning XP")
	serveCmd.Flags().Duration("demo-interval", 3*time.Second, "Time between demo learner actions")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}
	if cfg.Logging.Mode == "prod" || cfg.Logging.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitOTel(ctx, log, cfg.Tracing, version)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	hub := ws.NewHub(cfg.Server.MaxConnections, log)
	defer hub.Close()

	var relay *ws.RedisRelay
	a, err := buildApp(ctx, func(rdb *goredis.Client) gamification.Notifier {
		if rdb == nil {
			return hub
		}
		relay = ws.NewRedisRelay(rdb, cfg.Redis.Channel, hub, log)
		return relay
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if relay != nil {
		if err := relay.Start(ctx); err != nil {
			return err
		}
		log.Info("notification relay started", "channel", cfg.Redis.Channel)
	}

	if err := seed.Catalog(ctx, a.store, cfg.Courses, log); err != nil {
		return err
	}

	if demo, _ := cmd.Flags().GetBool("demo"); demo {
		interval, _ := cmd.Flags().GetDuration("demo-interval")
		catalog := cfg.Courses
		if len(catalog) == 0 {
			catalog = seed.DefaultCatalog()
		}
		gen := seed.NewGenerator(a.engine, a.courses, catalog, seed.DemoUserID, time.Now().UnixNano(), log)
		gen.Start(ctx, interval)
		log.Info("demo learner running", "user_id", gen.UserID(), "interval", interval)
	}

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: api.NewRouter(api.Deps{
			Engine:         a.engine,
			Courses:        a.courses,
			Store:          a.store,
			WS:             ws.NewHandler(hub, cfg.Server.AllowedOrigins, log),
			Log:            log,
			ServiceName:    cfg.Tracing.ServiceName,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
