package monitor

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMonitor(t *testing.T) *Monitor {
	t.Helper()
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestRecordAndSnapshot(t *testing.T) {
	m := newTestMonitor(t)

	m.Record("GET", "/api/nginx/proxy-hosts", 200, 20*time.Millisecond, "")
	m.Record("GET", "/api/nginx/proxy-hosts", 200, 40*time.Millisecond, "")
	m.Record("POST", "/api/nginx/proxy-hosts", 502, 5*time.Millisecond, "bad gateway")
	m.Record("GET", "/api/users", 0, time.Millisecond, "connection refused")
	m.RecordRetry()

	snap := m.Snapshot()

	assert.Equal(t, int64(4), snap.TotalRequests)
	assert.Equal(t, int64(2), snap.Success)
	assert.Equal(t, int64(1), snap.ServerErrors)
	assert.Equal(t, int64(1), snap.NetworkErrors)
	assert.Equal(t, int64(0), snap.ClientErrors)
	assert.Equal(t, int64(1), snap.Retries)
	assert.InDelta(t, 0.5, snap.ErrorRate, 1e-9)

	ep := snap.Endpoints["GET /api/nginx/proxy-hosts"]
	assert.Equal(t, int64(2), ep.Count)
	assert.Equal(t, int64(0), ep.Errors)
	assert.InDelta(t, 30, ep.AvgLatencyMs, 0.01)
	assert.Equal(t, int64(40), ep.MaxLatencyMs)

	require.Len(t, snap.LastErrors, 2)
	// Newest first
	assert.Equal(t, "GET", snap.LastErrors[0].Method)
	assert.Equal(t, "connection refused", snap.LastErrors[0].Message)
	assert.Equal(t, 502, snap.LastErrors[1].Status)
}

func TestLastErrorsBounded(t *testing.T) {
	m := newTestMonitor(t)

	for i := 0; i < lastErrorCap+10; i++ {
		m.Record("GET", fmt.Sprintf("/api/x/%d", i), 500, time.Millisecond, "boom")
	}

	snap := m.Snapshot()
	assert.Len(t, snap.LastErrors, lastErrorCap)
	// Newest entry corresponds to the last recorded path.
	assert.Equal(t, fmt.Sprintf("/api/x/%d", lastErrorCap+9), snap.LastErrors[0].Path)
}

func TestReset(t *testing.T) {
	m := newTestMonitor(t)

	m.Record("GET", "/api/users", 200, time.Millisecond, "")
	m.Record("GET", "/api/users", 503, time.Millisecond, "unavailable")
	m.RecordRetry()

	before := m.Snapshot()
	require.Equal(t, int64(2), before.TotalRequests)

	m.Reset()
	after := m.Snapshot()

	assert.Zero(t, after.TotalRequests)
	assert.Zero(t, after.Retries)
	assert.Empty(t, after.Endpoints)
	assert.Empty(t, after.LastErrors)
	assert.Zero(t, after.ErrorRate)
	// Uptime anchor survives a reset; only the counter epoch moves.
	assert.Equal(t, before.StartedAt, after.StartedAt)
	assert.True(t, after.ResetAt.After(before.ResetAt) || after.ResetAt.Equal(before.ResetAt))
}

func TestPrometheusMirror(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.Record("GET", "/api/users", 200, time.Millisecond, "")
	m.Record("GET", "/api/users", 502, time.Millisecond, "bad gateway")
	m.RecordRetry()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.forwarded.WithLabelValues("GET", outcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.forwarded.WithLabelValues("GET", outcomeServerError)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.retryCtr))
}

func TestDoubleRegisterFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestConcurrentRecord(t *testing.T) {
	m := newTestMonitor(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Record("GET", "/api/nginx/streams", 200, time.Millisecond, "")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(800), m.Snapshot().TotalRequests)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, outcomeNetworkError, classify(0))
	assert.Equal(t, outcomeSuccess, classify(204))
	assert.Equal(t, outcomeSuccess, classify(302))
	assert.Equal(t, outcomeClientError, classify(404))
	// Rate limiting is an upstream-side condition, same bucket the retry
	// policy puts it in.
	assert.Equal(t, outcomeServerError, classify(429))
	assert.Equal(t, outcomeServerError, classify(500))
}

func TestEndpointKeysNormalized(t *testing.T) {
	m := newTestMonitor(t)

	m.Record("GET", "/api/nginx/proxy-hosts/7", 200, time.Millisecond, "")
	m.Record("GET", "/api/nginx/proxy-hosts/123", 200, time.Millisecond, "")
	m.Record("DELETE", "/api/nginx/certificates/9", 200, time.Millisecond, "")

	snap := m.Snapshot()
	require.Len(t, snap.Endpoints, 2)
	assert.Equal(t, int64(2), snap.Endpoints["GET /api/nginx/proxy-hosts/:id"].Count)
	assert.Equal(t, int64(1), snap.Endpoints["DELETE /api/nginx/certificates/:id"].Count)
}

func TestEndpointMapBounded(t *testing.T) {
	m := newTestMonitor(t)

	// Distinct non-numeric paths so normalization cannot collapse them.
	for i := 0; i < endpointCap+50; i++ {
		m.Record("GET", fmt.Sprintf("/api/x%d", i), 200, time.Millisecond, "")
	}

	snap := m.Snapshot()
	assert.LessOrEqual(t, len(snap.Endpoints), endpointCap+1)
	assert.Equal(t, int64(50), snap.Endpoints[endpointSpillKey].Count)
}
