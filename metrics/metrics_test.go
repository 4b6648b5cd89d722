package metrics_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/atlekbai/hfsm"
	"github.com/atlekbai/hfsm/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBird(t *testing.T) *hfsm.StateMachine[string, string] {
	t.Helper()
	location := hfsm.NewRegion[string, string]("location", "holland")
	location.Configure("holland").Permit("migrate", "germany")

	g := hfsm.NewStateGraph[string, string]()
	g.Configure("egg").Permit("hatch", "alive")
	g.Configure("alive").Parallel(location)

	sm, err := hfsm.NewStateMachine(g, "egg")
	require.NoError(t, err)
	return sm
}

func TestInstrument_CountsTransitions(t *testing.T) {
	c := metrics.NewCollector()
	m := metrics.Instrument(c, newBird(t))

	require.NoError(t, m.Fire("hatch"))
	require.NoError(t, m.Fire("migrate"))

	expected := `
# HELP hfsm_transitions_total Total number of state transitions, including transitions inside regions
# TYPE hfsm_transitions_total counter
hfsm_transitions_total{destination="alive",source="egg",trigger="hatch"} 1
hfsm_transitions_total{destination="germany",source="holland",trigger="migrate"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "hfsm_transitions_total"))
}

func TestInstrument_CountsUnhandledTriggers(t *testing.T) {
	c := metrics.NewCollector()
	m := metrics.Instrument(c, newBird(t))

	err := m.Fire("fly")
	assert.ErrorIs(t, err, hfsm.ErrUnhandledTrigger)
	_ = m.Fire("fly")

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "hfsm_unhandled_triggers_total"))

	expected := `
# HELP hfsm_unhandled_triggers_total Total number of triggers no state or region accepted
# TYPE hfsm_unhandled_triggers_total counter
hfsm_unhandled_triggers_total{state="egg",trigger="fly"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "hfsm_unhandled_triggers_total"))
}

func TestInstrument_KeepsUnhandledAction(t *testing.T) {
	sentinel := errors.New("custom")
	sm := newBird(t)
	sm.OnUnhandledTrigger(func(_ context.Context, _ *hfsm.MachineContext, _ string, _ string, _ []string, _ ...any) error {
		return sentinel
	})

	m := metrics.Instrument(metrics.NewCollector(), sm)

	assert.ErrorIs(t, m.Fire("fly"), sentinel)
}

func TestInstrument_ObservesFireDuration(t *testing.T) {
	c := metrics.NewCollector()
	m := metrics.Instrument(c, newBird(t))

	require.NoError(t, m.Fire("hatch"))
	require.NoError(t, m.Fire("migrate"))

	assert.Equal(t, 2, testutil.CollectAndCount(c, "hfsm_fire_duration_seconds"))
}

func TestInstrument_SharedCollector(t *testing.T) {
	c := metrics.NewCollector()
	first := metrics.Instrument(c, newBird(t))
	second := metrics.Instrument(c, newBird(t))

	require.NoError(t, first.Fire("hatch"))
	require.NoError(t, second.Fire("hatch"))

	assert.Equal(t, 1, testutil.CollectAndCount(c, "hfsm_transitions_total"))
}
