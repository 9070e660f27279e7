package model

import "time"

// AuditEvent records one mutating API request that passed through the
// gateway. Events are best-effort: failing to persist one never fails the
// proxied request.
type AuditEvent struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id"`
	Actor     string    `json:"actor"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Status    int       `json:"status"`
	LatencyMs int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}
