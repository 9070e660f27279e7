package handler

import (
	"database/sql"
	"path/filepath"
	"strings"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"npmdeck/internal/config"
	"npmdeck/internal/monitor"
	"npmdeck/internal/service"
	"npmdeck/internal/upstream"
)

// RouterDeps bundles everything the route table needs. AuditDB, AuditSvc and
// ArchiveSvc are optional; the matching routes are only mounted when present.
type RouterDeps struct {
	Cfg        *config.AppConfig
	Mon        *monitor.Monitor
	Upstream   *upstream.Client
	Registry   *prometheus.Registry
	AuditDB    *sql.DB
	AuditSvc   service.AuditService
	ArchiveSvc service.CertArchiveService
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Handlers stay
// thin; the forwarding and recording logic lives in Proxy and the services.
func RegisterRoutes(app *fiber.App, d RouterDeps) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>NPMDeck API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	// Operational endpoints
	app.Get("/health", Health())
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/health-detailed", HealthDetailed(d.Mon, d.Upstream, d.AuditDB))
	app.Get("/metrics", Metrics(d.Mon))
	app.Get("/metrics/prometheus", adaptor.HTTPHandler(
		promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}),
	))
	app.Post("/reset-metrics", ResetMetrics(d.Mon))
	app.Get("/test-connectivity", TestConnectivity(d.Upstream))
	app.Get("/config", ConfigInfo(d.Cfg))
	app.Get("/status", Status(d.Cfg, d.Mon))

	var extra []EndpointInfo
	if d.AuditSvc != nil {
		app.Get("/audit", AuditList(d.AuditSvc))
		extra = append(extra, EndpointInfo{"GET", "/audit", "forwarded mutation log"})
	}
	if d.ArchiveSvc != nil {
		app.Get("/archive", ArchiveList(d.ArchiveSvc))
		app.Get("/archive/download", ArchiveDownload(d.ArchiveSvc))
		app.Delete("/archive", ArchiveDelete(d.ArchiveSvc))
		extra = append(extra,
			EndpointInfo{"GET", "/archive", "archived certificate bundles"},
			EndpointInfo{"GET", "/archive/download", "pre-signed bundle download URL"},
			EndpointInfo{"DELETE", "/archive", "remove one archived bundle"},
		)
	}
	app.Get("/endpoints", Endpoints(extra...))

	// Everything under /api is forwarded upstream.
	proxy := NewProxy(d.Upstream, d.Mon, d.AuditSvc, d.ArchiveSvc)
	app.All("/api/*", proxy.Forward)

	// Frontend: static assets with an SPA fallback to index.html.
	app.Static("/", d.Cfg.FrontendDir)
	app.Get("/*", func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/api/") {
			return fiber.ErrNotFound
		}
		return c.SendFile(filepath.Join(d.Cfg.FrontendDir, "index.html"))
	})
}
