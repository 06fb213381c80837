package api

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/process"
)

type healthHandler struct {
	store   Pinger
	started time.Time
}

func newHealthHandler(store Pinger) *healthHandler {
	return &healthHandler{store: store, started: time.Now()}
}

type healthResponse struct {
	Status     string  `json:"status"`
	Store      string  `json:"store"`
	Uptime     string  `json:"uptime"`
	RSSBytes   uint64  `json:"rss_bytes,omitempty"`
	CPUPercent float64 `json:"cpu_percent,omitempty"`
	Goroutines int     `json:"goroutines"`
}

// HealthCheck reports process stats and store reachability. It answers 503
// when the store cannot be pinged.
func (h *healthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:     "ok",
		Store:      "ok",
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
	}
	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if mem, err := p.MemoryInfoWithContext(ctx); err == nil {
			resp.RSSBytes = mem.RSS
		}
		if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
			resp.CPUPercent = cpu
		}
	}

	status := http.StatusOK
	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			resp.Status, resp.Store = "degraded", err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, resp)
}
