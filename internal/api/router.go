// Package api exposes the progression engine over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/internlink/backend/internal/gamification"
	"github.com/internlink/backend/internal/logger"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Engine         *gamification.Engine
	Courses        *gamification.CourseService
	Store          Pinger
	WS             http.Handler
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
}

func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.ServiceName == "" {
		d.ServiceName = "internlink-backend"
	}
	log := d.Log.With("component", "api")

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(d.ServiceName))
	r.Use(requestLogger(log))
	r.Use(securityHeaders())
	r.Use(corsMiddleware(d.AllowedOrigins))

	h := &handlers{engine: d.Engine, courses: d.Courses, log: log}
	health := newHealthHandler(d.Store)

	r.GET("/healthcheck", health.HealthCheck)
	if d.WS != nil {
		r.GET("/ws", gin.WrapH(d.WS))
	}

	api := r.Group("/api")
	{
		api.GET("/levels", h.levels)

		users := api.Group("/users/:userID", userParam())
		users.GET("/progression", h.progression)
		users.GET("/stats", h.stats)
		users.GET("/activities", h.activities)
		users.POST("/xp", h.awardXP)
		users.POST("/recompute", h.recompute)

		users.GET("/courses", h.listCourses)
		users.POST("/courses/:courseID/start", courseParam(), h.startCourse)
		users.PUT("/courses/:courseID/progress", courseParam(), h.updateProgress)
		users.POST("/courses/:courseID/complete", courseParam(), h.completeCourse)
	}
	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Requested-With"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		c.Next()
	}
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
		}
		switch {
		case status >= 500:
			log.Error("request", kv...)
		case status >= 400:
			log.Warn("request", kv...)
		default:
			log.Debug("request", kv...)
		}
	}
}
