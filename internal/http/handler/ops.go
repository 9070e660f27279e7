package handler

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"npmdeck/internal/config"
	"npmdeck/internal/monitor"
	"npmdeck/internal/service"
	"npmdeck/internal/upstream"
)

// Metrics returns the JSON counter snapshot kept by the monitor.
func Metrics(mon *monitor.Monitor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(mon.Snapshot())
	}
}

// ResetMetrics clears the monitor's counters. Uptime is preserved; only the
// counter epoch moves.
func ResetMetrics(mon *monitor.Monitor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mon.Reset()
		return c.JSON(fiber.Map{
			"status":   "ok",
			"reset_at": mon.Snapshot().ResetAt,
		})
	}
}

// Health is the basic liveness endpoint.
func Health() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	}
}

// HealthDetailed reports process and host health plus dependency
// reachability. db may be nil when the audit store is disabled.
func HealthDetailed(mon *monitor.Monitor, up *upstream.Client, db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
		defer cancel()

		system := fiber.Map{}
		if pct, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false); err == nil && len(pct) > 0 {
			system["cpu_percent"] = pct[0]
		}
		if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm != nil {
			system["memory_percent"] = vm.UsedPercent
			system["memory_used_bytes"] = vm.Used
			system["memory_total_bytes"] = vm.Total
		}
		if du, err := disk.UsageWithContext(ctx, "/"); err == nil && du != nil {
			system["disk_percent"] = du.UsedPercent
		}
		if hi, err := host.InfoWithContext(ctx); err == nil && hi != nil {
			system["hostname"] = hi.Hostname
			system["os"] = hi.OS
			system["platform"] = hi.Platform
			system["host_uptime_sec"] = hi.Uptime
		}

		upstreamInfo := fiber.Map{"url": up.BaseURL()}
		status := "healthy"
		if latency, code, err := up.Ping(ctx); err != nil {
			upstreamInfo["reachable"] = false
			upstreamInfo["error"] = err.Error()
			status = "degraded"
		} else {
			upstreamInfo["reachable"] = true
			upstreamInfo["latency_ms"] = latency.Milliseconds()
			upstreamInfo["http_status"] = code
		}

		body := fiber.Map{
			"status":   status,
			"system":   system,
			"upstream": upstreamInfo,
			"metrics":  mon.Snapshot(),
		}

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				body["audit_db"] = fiber.Map{"reachable": false, "error": err.Error()}
				body["status"] = "degraded"
			} else {
				body["audit_db"] = fiber.Map{"reachable": true}
			}
		}

		httpStatus := fiber.StatusOK
		if body["status"] == "degraded" {
			httpStatus = fiber.StatusServiceUnavailable
		}
		return c.Status(httpStatus).JSON(body)
	}
}

// TestConnectivity probes the upstream once and reports latency. Any HTTP
// response counts as reachable; only transport failures do not.
func TestConnectivity(up *upstream.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 10*time.Second)
		defer cancel()

		latency, code, err := up.Ping(ctx)
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"reachable":  false,
				"url":        up.BaseURL(),
				"latency_ms": latency.Milliseconds(),
				"message":    err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"reachable":   true,
			"url":         up.BaseURL(),
			"latency_ms":  latency.Milliseconds(),
			"http_status": code,
		})
	}
}

// ConfigInfo exposes the running configuration with credentials masked.
func ConfigInfo(cfg *config.AppConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(cfg.Redacted())
	}
}

// EndpointInfo describes one route in the /endpoints catalog.
type EndpointInfo struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// Endpoints returns the gateway's own route catalog.
func Endpoints(extra ...EndpointInfo) fiber.Handler {
	catalog := []EndpointInfo{
		{"GET", "/health", "liveness probe"},
		{"GET", "/healthz", "bare liveness probe"},
		{"GET", "/health-detailed", "host, process and dependency health"},
		{"GET", "/metrics", "JSON counter snapshot"},
		{"GET", "/metrics/prometheus", "Prometheus exposition"},
		{"POST", "/reset-metrics", "clear the JSON counters"},
		{"GET", "/test-connectivity", "probe the upstream API"},
		{"GET", "/config", "running configuration, credentials masked"},
		{"GET", "/endpoints", "this catalog"},
		{"GET", "/status", "condensed service status"},
		{"ALL", "/api/*", "forwarded to the Nginx Proxy Manager API"},
	}
	catalog = append(catalog, extra...)
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"endpoints": catalog})
	}
}

// Status returns a condensed view suitable for a dashboard header.
func Status(cfg *config.AppConfig, mon *monitor.Monitor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap := mon.Snapshot()
		return c.JSON(fiber.Map{
			"service":        "npmdeck",
			"upstream_url":   cfg.Upstream.BaseURL,
			"uptime_seconds": snap.UptimeSeconds,
			"total_requests": snap.TotalRequests,
			"error_rate":     snap.ErrorRate,
			"retries":        snap.Retries,
		})
	}
}

// AuditList returns persisted audit events, newest first.
func AuditList(svc service.AuditService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "25"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// ArchiveList returns the archived certificate bundles.
func ArchiveList(svc service.CertArchiveService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.List(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"data": items, "total": len(items)})
	}
}

// ArchiveDownload returns a time-limited download URL for one archived bundle.
func ArchiveDownload(svc service.CertArchiveService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Query("key")
		if key == "" {
			return writeError(c, fiber.StatusBadRequest, "KEY_REQUIRED", "key is required")
		}
		u, err := svc.PresignDownload(c.UserContext(), key)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KEY", "key is not an archived certificate")
		}
		return c.JSON(fiber.Map{"url": u})
	}
}

// ArchiveDelete removes one archived bundle from the store.
func ArchiveDelete(svc service.CertArchiveService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Query("key")
		if key == "" {
			return writeError(c, fiber.StatusBadRequest, "KEY_REQUIRED", "key is required")
		}
		if err := svc.Delete(c.UserContext(), key); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KEY", "key is not an archived certificate")
		}
		return c.JSON(fiber.Map{"deleted": key})
	}
}
