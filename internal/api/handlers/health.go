package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

// Pinger is anything with a pingable connection.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	db      Pinger
	redis   Pinger
	version string
	started time.Time
}

func NewHealthHandler(db, redis Pinger, version string) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, version: version, started: time.Now()}
}

type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	UptimeSec int64          `json:"uptime_seconds"`
	Services  ServiceStatus  `json:"services"`
	System    SystemSnapshot `json:"system"`
}

type ServiceStatus struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

type SystemSnapshot struct {
	MemoryUsedPercent float64 `json:"memory_used_percent"`
	CPUPercent        float64 `json:"cpu_percent"`
	Goroutines        int     `json:"goroutines"`
}

// Check serves GET /health. Degraded dependencies flip the status and the
// transport code; system stats are best-effort.
func (h *HealthHandler) Check(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
		UptimeSec: int64(time.Since(h.started).Seconds()),
		Services:  ServiceStatus{Database: "ok", Redis: "ok"},
		System:    SystemSnapshot{Goroutines: runtime.NumGoroutine()},
	}

	if h.db == nil {
		resp.Services.Database = "unconfigured"
	} else if err := h.db.HealthCheck(c.Request.Context()); err != nil {
		resp.Services.Database = "error"
		resp.Status = "degraded"
	}
	if h.redis == nil {
		resp.Services.Redis = "unconfigured"
	} else if err := h.redis.HealthCheck(c.Request.Context()); err != nil {
		resp.Services.Redis = "error"
		resp.Status = "degraded"
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		resp.System.MemoryUsedPercent = vm.UsedPercent
	} else {
		logrus.WithError(err).Debug("Failed to read memory stats")
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		resp.System.CPUPercent = percents[0]
	}

	status := http.StatusOK
	if resp.Status == "degraded" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
