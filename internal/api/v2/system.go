package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/s-hit/mshd-backend/internal/logger"
)

// healthCheckTimeout bounds the database ping.
const healthCheckTimeout = 2 * time.Second

// DiskUsage describes the volume holding uploaded files.
type DiskUsage struct {
	Path        string  `json:"path"`
	TotalBytes  uint64  `json:"total_bytes"`
	FreeBytes   uint64  `json:"free_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status         string     `json:"status"` // healthy or degraded
	Version        string     `json:"version,omitempty"`
	BuildDate      string     `json:"build_date,omitempty"`
	Timestamp      string     `json:"timestamp"`
	Uptime         string     `json:"uptime"`
	UptimeSeconds  float64    `json:"uptime_seconds"`
	DatabaseStatus string     `json:"database_status"`
	DatabaseError  string     `json:"database_error,omitempty"`
	Storage        *DiskUsage `json:"storage,omitempty"`
}

// HealthCheck handles GET /health. A database that does not answer the
// ping turns the status to degraded and the response code to 503.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	uptime := time.Since(c.startTime)
	response := HealthResponse{
		Status:         "healthy",
		Version:        c.Settings.Version,
		BuildDate:      c.Settings.BuildDate,
		Timestamp:      time.Now().Format(time.RFC3339),
		Uptime:         uptime.Round(time.Second).String(),
		UptimeSeconds:  uptime.Seconds(),
		DatabaseStatus: "unknown",
	}
	code := http.StatusOK

	if c.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx.Request().Context(), healthCheckTimeout)
		err := c.db.Ping(pingCtx)
		cancel()
		if err != nil {
			c.log.Warn("health check database ping failed", logger.Error(err))
			response.Status = "degraded"
			response.DatabaseStatus = "disconnected"
			response.DatabaseError = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			response.DatabaseStatus = "connected"
		}
	}

	if path := c.Settings.Media.PublicDir; path != "" {
		usage, err := disk.UsageWithContext(ctx.Request().Context(), path)
		if err != nil {
			c.log.Debug("disk usage unavailable", logger.String("path", path), logger.Error(err))
		} else {
			response.Storage = &DiskUsage{
				Path:        path,
				TotalBytes:  usage.Total,
				FreeBytes:   usage.Free,
				UsedPercent: usage.UsedPercent,
			}
		}
	}

	return ctx.JSON(code, response)
}
