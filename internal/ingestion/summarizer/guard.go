package summarizer

import (
	"context"
	"errors"
	"time"

	"github.com/inkwell-dev/website/internal/ingestion/assembler"
	"github.com/inkwell-dev/website/pkg/health"
	"github.com/inkwell-dev/website/pkg/metrics"
	"github.com/inkwell-dev/website/pkg/resilience"
)

// Guard bounds every call to the wrapped summarizer by a timeout and fails
// fast while its circuit is open.
type Guard struct {
	next    assembler.Summarizer
	timeout time.Duration
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
}

// NewGuard wraps next. m may be nil.
func NewGuard(next assembler.Summarizer, timeout time.Duration, m *metrics.Metrics) *Guard {
	cbCfg := resilience.CircuitBreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     time.Minute,
	}
	if m != nil {
		cbCfg.OnStateChange = func(name string, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	return &Guard{
		next:    next,
		timeout: timeout,
		breaker: resilience.NewCircuitBreaker("summarizer", cbCfg),
		metrics: m,
	}
}

func (g *Guard) Summarize(ctx context.Context, body string) (string, error) {
	start := time.Now()
	var summary string
	err := g.breaker.ExecuteIgnoring(func() error {
		var err error
		summary, err = resilience.Call(ctx, g.timeout, "summarize", func(ctx context.Context) (string, error) {
			return g.next.Summarize(ctx, body)
		})
		return err
	}, func(error) bool {
		// the caller gave up; not the backend's fault
		return ctx.Err() != nil
	})
	g.observe(start, err)
	return summary, err
}

func (g *Guard) observe(start time.Time, err error) {
	if g.metrics == nil {
		return
	}
	status := "ok"
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		status = "rejected"
	case errors.Is(err, context.DeadlineExceeded):
		status = "timeout"
	case err != nil:
		status = "error"
	}
	g.metrics.SummarizeDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
}

// State reports the circuit state.
func (g *Guard) State() resilience.State {
	return g.breaker.GetState()
}

// Check is a health.Check that reports degraded while the circuit is open.
// Summaries are optional, so the summarizer never reports down.
func (g *Guard) Check(ctx context.Context) health.ComponentHealth {
	if state := g.State(); state == resilience.StateOpen {
		return health.ComponentHealth{Status: health.StatusDegraded, Message: "circuit " + state.String()}
	}
	return health.ComponentHealth{Status: health.StatusUp}
}
