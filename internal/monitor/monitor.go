// Package monitor keeps in-memory statistics about traffic the gateway
// forwards upstream. It backs the JSON /metrics, /status and /reset-metrics
// endpoints and mirrors its counters into Prometheus collectors.
package monitor

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	lastErrorCap = 20

	// endpointCap bounds the per-endpoint map; paths are normalized before
	// keying, so the cap only trips on genuinely diverse route shapes. The
	// spill goes into a single overflow bucket.
	endpointCap      = 200
	endpointSpillKey = "other"
)

// ErrorRecord is one remembered upstream failure, newest first in snapshots.
type ErrorRecord struct {
	Time    time.Time `json:"time"`
	Method  string    `json:"method"`
	Path    string    `json:"path"`
	Status  int       `json:"status"`
	Message string    `json:"message"`
}

// EndpointStats aggregates per-endpoint counters for a snapshot.
type EndpointStats struct {
	Count        int64   `json:"count"`
	Errors       int64   `json:"errors"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	MaxLatencyMs int64   `json:"max_latency_ms"`
}

// Snapshot is the JSON view returned by the /metrics endpoint.
type Snapshot struct {
	StartedAt     time.Time                `json:"started_at"`
	ResetAt       time.Time                `json:"reset_at"`
	UptimeSeconds float64                  `json:"uptime_seconds"`
	TotalRequests int64                    `json:"total_requests"`
	Success       int64                    `json:"success"`
	ClientErrors  int64                    `json:"client_errors"`
	ServerErrors  int64                    `json:"server_errors"`
	NetworkErrors int64                    `json:"network_errors"`
	Retries       int64                    `json:"retries"`
	ErrorRate     float64                  `json:"error_rate"`
	Endpoints     map[string]EndpointStats `json:"endpoints"`
	LastErrors    []ErrorRecord            `json:"last_errors"`
}

type endpointAgg struct {
	count      int64
	errors     int64
	latencySum int64
	latencyMax int64
}

// Monitor is safe for concurrent use. One instance is shared by the
// forwarding handler and the operational endpoints.
type Monitor struct {
	mu sync.Mutex

	startedAt time.Time
	resetAt   time.Time

	total         int64
	success       int64
	clientErrors  int64
	serverErrors  int64
	networkErrors int64
	retries       int64

	endpoints  map[string]*endpointAgg
	lastErrors []ErrorRecord

	forwarded *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	retryCtr  prometheus.Counter
}

// New creates a Monitor and registers its Prometheus collectors on reg.
func New(reg prometheus.Registerer) (*Monitor, error) {
	m := &Monitor{
		startedAt: time.Now(),
		resetAt:   time.Now(),
		endpoints: make(map[string]*endpointAgg),
		forwarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "npmdeck_upstream_requests_total",
				Help: "Total number of requests forwarded to the upstream API.",
			},
			[]string{"method", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "npmdeck_upstream_request_duration_seconds",
				Help:    "Latency of forwarded upstream requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		retryCtr: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "npmdeck_upstream_retries_total",
			Help: "Total number of retry attempts against the upstream API.",
		}),
	}

	for _, c := range []prometheus.Collector{m.forwarded, m.latency, m.retryCtr} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Record accounts one forwarded request. Status 0 means the upstream was
// never reached (network error); errMsg may be empty for successes.
func (m *Monitor) Record(method, path string, status int, latency time.Duration, errMsg string) {
	outcome := classify(status)

	m.forwarded.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(latency.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	switch outcome {
	case outcomeSuccess:
		m.success++
	case outcomeClientError:
		m.clientErrors++
	case outcomeServerError:
		m.serverErrors++
	case outcomeNetworkError:
		m.networkErrors++
	}

	key := method + " " + normalizePath(path)
	agg := m.endpoints[key]
	if agg == nil {
		if len(m.endpoints) >= endpointCap {
			key = endpointSpillKey
			agg = m.endpoints[key]
		}
		if agg == nil {
			agg = &endpointAgg{}
			m.endpoints[key] = agg
		}
	}
	agg.count++
	ms := latency.Milliseconds()
	agg.latencySum += ms
	if ms > agg.latencyMax {
		agg.latencyMax = ms
	}

	if outcome != outcomeSuccess {
		agg.errors++
		m.pushError(ErrorRecord{
			Time:    time.Now(),
			Method:  method,
			Path:    path,
			Status:  status,
			Message: errMsg,
		})
	}
}

// RecordRetry accounts one retry attempt against the upstream.
func (m *Monitor) RecordRetry() {
	m.retryCtr.Inc()
	m.mu.Lock()
	m.retries++
	m.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	eps := make(map[string]EndpointStats, len(m.endpoints))
	for k, agg := range m.endpoints {
		s := EndpointStats{
			Count:        agg.count,
			Errors:       agg.errors,
			MaxLatencyMs: agg.latencyMax,
		}
		if agg.count > 0 {
			s.AvgLatencyMs = float64(agg.latencySum) / float64(agg.count)
		}
		eps[k] = s
	}

	errs := make([]ErrorRecord, len(m.lastErrors))
	copy(errs, m.lastErrors)

	snap := Snapshot{
		StartedAt:     m.startedAt,
		ResetAt:       m.resetAt,
		UptimeSeconds: time.Since(m.startedAt).Seconds(),
		TotalRequests: m.total,
		Success:       m.success,
		ClientErrors:  m.clientErrors,
		ServerErrors:  m.serverErrors,
		NetworkErrors: m.networkErrors,
		Retries:       m.retries,
		Endpoints:     eps,
		LastErrors:    errs,
	}
	if m.total > 0 {
		snap.ErrorRate = float64(m.total-m.success) / float64(m.total)
	}
	return snap
}

// Reset clears all in-memory counters. The process start time is kept so
// uptime stays truthful; ResetAt marks the counter epoch. Prometheus
// collectors are cumulative by contract and are not reset.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total = 0
	m.success = 0
	m.clientErrors = 0
	m.serverErrors = 0
	m.networkErrors = 0
	m.retries = 0
	m.endpoints = make(map[string]*endpointAgg)
	m.lastErrors = nil
	m.resetAt = time.Now()
}

// pushError appends newest-first, bounded at lastErrorCap. Caller holds mu.
func (m *Monitor) pushError(rec ErrorRecord) {
	m.lastErrors = append([]ErrorRecord{rec}, m.lastErrors...)
	if len(m.lastErrors) > lastErrorCap {
		m.lastErrors = m.lastErrors[:lastErrorCap]
	}
}

const (
	outcomeSuccess      = "success"
	outcomeClientError  = "client_error"
	outcomeServerError  = "server_error"
	outcomeNetworkError = "network_error"
)

// classify buckets a status the same way the upstream retry policy does:
// 429 counts as a server-side failure, not a caller mistake.
func classify(status int) string {
	switch {
	case status == 0:
		return outcomeNetworkError
	case status >= 500 || status == 429:
		return outcomeServerError
	case status >= 400:
		return outcomeClientError
	default:
		return outcomeSuccess
	}
}

// normalizePath collapses numeric path segments into ":id" so per-resource
// requests share one endpoint key instead of growing the map per record ID.
func normalizePath(path string) string {
	segs := strings.Split(path, "/")
	changed := false
	for i, s := range segs {
		if s != "" && isDigits(s) {
			segs[i] = ":id"
			changed = true
		}
	}
	if !changed {
		return path
	}
	return strings.Join(segs, "/")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
