// Package waitmetrics exports Prometheus metrics about pagewait waits.
//
//	m, err := waitmetrics.New(prometheus.DefaultRegisterer)
//	if err != nil {
//		// handle error
//	}
//	w := pagewait.New(port, pagewait.WithHooks(m.Hooks()))
package waitmetrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pagewait/pagewait"
)

// Metrics holds the wait collectors.
type Metrics struct {
	waits    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	polls    *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
}

// New creates the wait collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		waits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagewait_waits_total",
				Help: "Total number of finished waits, by operation and outcome.",
			},
			[]string{"op", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagewait_wait_duration_seconds",
				Help:    "Time spent in waits, by operation.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"op"},
		),
		polls: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagewait_wait_polls",
				Help:    "Number of condition evaluations per wait, by operation.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"op"},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pagewait_waits_in_flight",
				Help: "Number of waits currently polling, by operation.",
			},
			[]string{"op"},
		),
	}
	for _, c := range []prometheus.Collector{m.waits, m.duration, m.polls, m.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns the hooks feeding m, for pagewait.WithHooks.
func (m *Metrics) Hooks() pagewait.Hooks {
	return pagewait.Hooks{
		OnWaitStart: m.start,
		OnWaitDone:  m.done,
	}
}

func (m *Metrics) start(_ context.Context, e *pagewait.WaitEvent) {
	m.inFlight.WithLabelValues(e.Op).Inc()
}

func (m *Metrics) done(_ context.Context, e *pagewait.WaitEvent) {
	m.inFlight.WithLabelValues(e.Op).Dec()
	m.waits.WithLabelValues(e.Op, e.Outcome.String()).Inc()
	m.duration.WithLabelValues(e.Op).Observe(e.Elapsed.Seconds())
	m.polls.WithLabelValues(e.Op).Observe(float64(e.Polls))
}

// Chain combines hooks, calling them in order.
func Chain(hooks ...pagewait.Hooks) pagewait.Hooks {
	return pagewait.Hooks{
		OnWaitStart: func(ctx context.Context, e *pagewait.WaitEvent) {
			for _, h := range hooks {
				if h.OnWaitStart != nil {
					h.OnWaitStart(ctx, e)
				}
			}
		},
		OnWaitDone: func(ctx context.Context, e *pagewait.WaitEvent) {
			for _, h := range hooks {
				if h.OnWaitDone != nil {
					h.OnWaitDone(ctx, e)
				}
			}
		},
	}
}
