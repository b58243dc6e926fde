package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// sessionCountTimeout bounds one store scan.
const sessionCountTimeout = 30 * time.Second

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Length(ctx context.Context) (int, error)
}

// SessionGauge exports relay_sessions_active. The value is the last count
// taken by Refresh; scrapes never touch the store.
type SessionGauge struct {
	counter SessionCounter
	gauge   prometheus.Gauge
}

// RegisterSessionGauge registers the session gauge. It reads 0 until the
// first Refresh.
func (c *Collector) RegisterSessionGauge(counter SessionCounter) (*SessionGauge, error) {
	g := &SessionGauge{
		counter: counter,
		gauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: c.namespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Number of sessions currently held in the key-value store",
		}),
	}
	if err := c.registry.Register(g.gauge); err != nil {
		return nil, err
	}
	return g, nil
}

// Refresh counts the sessions and updates the gauge. On failure the
// previous value is kept.
func (g *SessionGauge) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, sessionCountTimeout)
	defer cancel()

	n, err := g.counter.Length(ctx)
	if err != nil {
		return fmt.Errorf("counting sessions: %w", err)
	}
	g.gauge.Set(float64(n))
	return nil
}
