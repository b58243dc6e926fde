package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// unhealthyAfter is the number of consecutive failed forwards after which
// the upstream is reported unhealthy.
const unhealthyAfter = 3

// Health is a snapshot of the upstream's observed health. It is derived
// passively from forwarded traffic; the gateway never probes the upstream on
// its own, since probes would need a provider key.
type Health struct {
	IsHealthy             bool
	LastCheck             time.Time
	ConsecutiveFailures   int
	LastError             error
	LastSuccessfulRequest time.Time
	TotalRequests         int64
	FailedRequests        int64
}

type healthTracker struct {
	name string
	mu   sync.RWMutex
	h    Health
}

func newHealthTracker(name string) *healthTracker {
	now := time.Now()
	return &healthTracker{
		name: name,
		h: Health{
			IsHealthy:             true, // Start optimistic
			LastCheck:             now,
			LastSuccessfulRequest: now,
		},
	}
}

func (t *healthTracker) update(success bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.h.LastCheck = time.Now()
	t.h.TotalRequests++

	if success {
		t.h.IsHealthy = true
		t.h.ConsecutiveFailures = 0
		t.h.LastError = nil
		t.h.LastSuccessfulRequest = t.h.LastCheck
		return
	}

	t.h.FailedRequests++
	t.h.ConsecutiveFailures++
	t.h.LastError = err
	if t.h.ConsecutiveFailures >= unhealthyAfter && t.h.IsHealthy {
		t.h.IsHealthy = false
		slog.Warn("provider marked unhealthy",
			"provider", t.name,
			"consecutive_failures", t.h.ConsecutiveFailures,
			"error", err,
		)
	}
}

func (t *healthTracker) snapshot() Health {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.h
}

// Health returns the current health snapshot.
func (c *OpenAIClient) Health() Health {
	return c.health.snapshot()
}

// IsHealthy reports whether recent forwards succeeded.
func (c *OpenAIClient) IsHealthy() bool {
	return c.health.snapshot().IsHealthy
}

// HealthCheck returns an error when the upstream has been failing. It does
// no I/O and is safe to call from readiness probes.
func (c *OpenAIClient) HealthCheck(_ context.Context) error {
	h := c.health.snapshot()
	if h.IsHealthy {
		return nil
	}
	return fmt.Errorf("upstream %s failing: %d consecutive failures, last: %v",
		c.name, h.ConsecutiveFailures, h.LastError)
}
