package poll

import (
	"sync"
	"sync/atomic"
	"time"
)

// Health tracks consecutive gateway failures. It turns unhealthy once the
// count reaches the threshold and recovers on the next success.
type Health struct {
	threshold   int64
	consecutive atomic.Int64
	total       atomic.Int64

	mu          sync.Mutex
	lastErr     string
	lastOp      string
	lastFailure time.Time
}

// HealthStatus is a point-in-time copy of Health.
type HealthStatus struct {
	Healthy             bool      `json:"healthy"`
	ConsecutiveFailures int64     `json:"consecutive_failures"`
	TotalFailures       int64     `json:"total_failures"`
	Threshold           int64     `json:"threshold"`
	LastOperation       string    `json:"last_operation,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
	LastFailureAt       time.Time `json:"last_failure_at,omitempty"`
}

// NewHealth creates a tracker. Thresholds below 1 are treated as 1.
func NewHealth(threshold int) *Health {
	if threshold < 1 {
		threshold = 1
	}
	return &Health{threshold: int64(threshold)}
}

// RecordFailure registers a failed gateway call. It returns true when this
// failure made the tracker cross into the unhealthy state.
func (h *Health) RecordFailure(op string, err error) bool {
	n := h.consecutive.Add(1)
	h.total.Add(1)

	h.mu.Lock()
	h.lastOp = op
	if err != nil {
		h.lastErr = err.Error()
	}
	h.lastFailure = time.Now()
	h.mu.Unlock()

	return n == h.threshold
}

// RecordSuccess resets the consecutive failure counter.
func (h *Health) RecordSuccess() {
	h.consecutive.Store(0)
}

// Healthy reports whether consecutive failures are below the threshold.
func (h *Health) Healthy() bool {
	return h.consecutive.Load() < h.threshold
}

// ConsecutiveFailures returns the current failure streak.
func (h *Health) ConsecutiveFailures() int64 {
	return h.consecutive.Load()
}

// Status returns a copy of the tracker state.
func (h *Health) Status() HealthStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.consecutive.Load()
	return HealthStatus{
		Healthy:             n < h.threshold,
		ConsecutiveFailures: n,
		TotalFailures:       h.total.Load(),
		Threshold:           h.threshold,
		LastOperation:       h.lastOp,
		LastError:           h.lastErr,
		LastFailureAt:       h.lastFailure,
	}
}
