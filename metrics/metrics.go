// Package metrics exports Prometheus metrics for hfsm state machines.
package metrics

import (
	"context"
	"fmt"

	"github.com/atlekbai/hfsm"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the metric vectors shared by every instrumented machine.
// Register it once with a prometheus.Registerer.
type Collector struct {
	transitions  *prometheus.CounterVec
	unhandled    *prometheus.CounterVec
	fireDuration *prometheus.HistogramVec
}

// NewCollector creates the hfsm metric vectors.
func NewCollector() *Collector {
	return &Collector{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hfsm_transitions_total",
				Help: "Total number of state transitions, including transitions inside regions",
			},
			[]string{"source", "destination", "trigger"},
		),
		unhandled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hfsm_unhandled_triggers_total",
				Help: "Total number of triggers no state or region accepted",
			},
			[]string{"state", "trigger"},
		),
		fireDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hfsm_fire_duration_seconds",
				Help:    "Duration of Fire calls, including relayed region firings",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"trigger"},
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.transitions.Describe(ch)
	c.unhandled.Describe(ch)
	c.fireDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.transitions.Collect(ch)
	c.unhandled.Collect(ch)
	c.fireDuration.Collect(ch)
}

// Machine is a state machine whose Fire calls are timed.
type Machine[S, T comparable] struct {
	*hfsm.StateMachine[S, T]

	collector *Collector
}

// Instrument counts the transitions and unhandled triggers of sm. The
// unhandled trigger action in place when Instrument is called still runs
// after the count. Fire calls made through the returned Machine are timed.
func Instrument[S, T comparable](c *Collector, sm *hfsm.StateMachine[S, T]) *Machine[S, T] {
	sm.OnTransitioned(func(t hfsm.Transition[S, T]) {
		c.transitions.WithLabelValues(label(t.Source), label(t.Destination), label(t.Trigger)).Inc()
	})

	next := sm.UnhandledTriggerAction()
	sm.OnUnhandledTrigger(func(ctx context.Context, mc *hfsm.MachineContext, state S, trigger T, unmetGuards []string, args ...any) error {
		c.unhandled.WithLabelValues(label(state), label(trigger)).Inc()
		return next(ctx, mc, state, trigger, unmetGuards, args...)
	})

	return &Machine[S, T]{StateMachine: sm, collector: c}
}

// Fire fires trigger and records how long it took.
func (m *Machine[S, T]) Fire(trigger T, args ...any) error {
	return m.FireCtx(context.Background(), trigger, args...)
}

// FireCtx fires trigger and records how long it took.
func (m *Machine[S, T]) FireCtx(ctx context.Context, trigger T, args ...any) error {
	timer := prometheus.NewTimer(m.collector.fireDuration.WithLabelValues(label(trigger)))
	defer timer.ObserveDuration()
	return m.StateMachine.FireCtx(ctx, trigger, args...)
}

func label(v any) string {
	return fmt.Sprintf("%v", v)
}
