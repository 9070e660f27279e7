package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusMiddleware(t *testing.T) {
	// Use a fresh registry for each test to avoid "duplicate registration" panic
	reg := prometheus.NewRegistry()
	promMiddleware, err := NewPrometheusMiddleware(reg)
	if err != nil {
		t.Fatalf("failed to create middleware: %v", err)
	}

	app := fiber.New()
	app.Use(promMiddleware.Handler())

	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	app.Get("/error", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "bad request")
	})

	app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	if _, err := app.Test(req); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if got := testutil.ToFloat64(promMiddleware.requestCount.WithLabelValues("GET", "/test", "200")); got != 1 {
		t.Errorf("expected counter 1 for GET /test 200, got %v", got)
	}

	req = httptest.NewRequest("GET", "/error", nil)
	if _, err := app.Test(req); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if got := testutil.ToFloat64(promMiddleware.requestCount.WithLabelValues("GET", "/error", "400")); got != 1 {
		t.Errorf("expected counter 1 for GET /error 400, got %v", got)
	}

	// /metrics itself must not be counted.
	req = httptest.NewRequest("GET", "/metrics", nil)
	if _, err := app.Test(req); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if got := testutil.ToFloat64(promMiddleware.requestCount.WithLabelValues("GET", "/metrics", "200")); got != 0 {
		t.Errorf("expected /metrics to be excluded, got counter %v", got)
	}
}

func TestPrometheusMiddlewareDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMiddleware(reg); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if _, err := NewPrometheusMiddleware(reg); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}
