package hfsm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlekbai/hfsm"
)

// bird builds an "alive" parallel state with a "location" region and a
// "mood" region.
func bird(t *testing.T, log *[]string) *hfsm.StateMachine[string, string] {
	t.Helper()
	rec := func(name string) hfsm.ActionFunc[string, string] {
		return func(context.Context, *hfsm.MachineContext, hfsm.Transition[string, string], ...any) error {
			*log = append(*log, name)
			return nil
		}
	}

	location := hfsm.NewRegion[string, string]("location", "holland")
	location.Configure("holland").
		Permit("migrate", "germany").
		OnEntry(rec("enter holland"))
	location.Configure("germany").
		Permit("migrate", "holland").
		OnEntry(rec("enter germany"))

	mood := hfsm.NewRegion[string, string]("mood", "calm")
	mood.Configure("calm").Permit("startle", "scared")
	mood.Configure("scared").
		Permit("soothe", "calm").
		Ignore("migrate")

	g := hfsm.NewStateGraph[string, string]()
	g.Configure("egg").Permit("hatch", "alive")
	g.Configure("alive").
		Parallel(location).
		Parallel(mood).
		PermitReentry("molt").
		Permit("die", "dead").
		OnEntry(rec("enter alive")).
		OnExit(rec("exit alive"))

	sm, err := hfsm.NewStateMachine(g, "egg")
	require.NoError(t, err)
	return sm
}

func TestRegion_MigrateShowsInSnapshot(t *testing.T) {
	var log []string
	sm := bird(t, &log)
	ctx := context.Background()

	require.NoError(t, sm.Fire("hatch"))
	require.NoError(t, sm.Fire("migrate"))

	snapshot, err := sm.GetStateMachineState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alive", snapshot.State)
	require.Len(t, snapshot.SubStates, 2)
	assert.Equal(t, "germany", snapshot.SubStates[0].State)
	assert.Equal(t, "calm", snapshot.SubStates[1].State)
	assert.Equal(t, "alive[germany, calm]", snapshot.String())
	assert.Equal(t, []string{"germany", "calm"}, snapshot.Leaves())
}

func TestRegion_RegionsStartAtInitialState(t *testing.T) {
	var log []string
	sm := bird(t, &log)
	ctx := context.Background()

	require.NoError(t, sm.Fire("hatch"))

	for _, state := range []string{"alive", "holland", "calm"} {
		ok, err := sm.IsInState(ctx, state)
		require.NoError(t, err)
		assert.True(t, ok, "expected to be in %s", state)
	}
	ok, err := sm.IsInState(ctx, "germany")
	require.NoError(t, err)
	assert.False(t, ok)

	// Region graphs do not run initial entry actions unless enabled.
	assert.Equal(t, []string{"enter alive"}, log)
}

func TestRegion_RelayIsOfferedToEveryRegion(t *testing.T) {
	var log []string
	sm := bird(t, &log)
	ctx := context.Background()

	require.NoError(t, sm.Fire("hatch"))
	require.NoError(t, sm.Fire("startle"))

	// "migrate" is ignored by mood and handled by location.
	require.NoError(t, sm.Fire("migrate"))

	snapshot, err := sm.GetStateMachineState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alive[germany, scared]", snapshot.String())
}

func TestRegion_UnhandledWhenNoRegionAccepts(t *testing.T) {
	var log []string
	sm := bird(t, &log)

	require.NoError(t, sm.Fire("hatch"))

	err := sm.Fire("soothe")
	require.Error(t, err)
	assert.True(t, errors.Is(err, hfsm.ErrUnhandledTrigger))

	var unhandled *hfsm.UnhandledTriggerError
	require.ErrorAs(t, err, &unhandled)
	assert.Equal(t, "alive", unhandled.State)
}

func TestRegion_OwnerTriggerWinsOverRegions(t *testing.T) {
	var log []string
	sm := bird(t, &log)

	require.NoError(t, sm.Fire("hatch"))
	require.NoError(t, sm.Fire("die"))

	assert.Equal(t, "dead", sm.MustState())
	assert.Equal(t, []string{"enter alive", "exit alive"}, log)

	snapshot, err := sm.GetStateMachineState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dead", snapshot.String())
}

func TestRegion_ReentryCreatesFreshInstances(t *testing.T) {
	var log []string
	sm := bird(t, &log)
	ctx := context.Background()

	require.NoError(t, sm.Fire("hatch"))
	require.NoError(t, sm.Fire("migrate"))
	require.NoError(t, sm.Fire("molt"))

	snapshot, err := sm.GetStateMachineState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alive[holland, calm]", snapshot.String())
}

func TestRegion_CanFireAndPermittedTriggers(t *testing.T) {
	var log []string
	sm := bird(t, &log)
	ctx := context.Background()

	ok, err := sm.CanFire(ctx, "migrate")
	require.NoError(t, err)
	assert.False(t, ok, "regions are not live before the owner is entered")

	require.NoError(t, sm.Fire("hatch"))

	ok, err = sm.CanFire(ctx, "migrate")
	require.NoError(t, err)
	assert.True(t, ok)

	triggers, err := sm.GetPermittedTriggers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"molt", "die", "migrate", "startle"}, triggers)
}

func TestRegion_TransitionsAreObserved(t *testing.T) {
	var log []string
	sm := bird(t, &log)

	var seen []string
	sm.OnTransitioned(func(tr hfsm.Transition[string, string]) {
		seen = append(seen, tr.Source+"->"+tr.Destination)
	})

	require.NoError(t, sm.Fire("hatch"))
	require.NoError(t, sm.Fire("migrate"))

	assert.Equal(t, []string{"egg->alive", "holland->germany"}, seen)
}

func TestRegion_InitialParallelState(t *testing.T) {
	region := hfsm.NewRegion[string, string]("location", "holland")
	region.Configure("holland").Permit("migrate", "germany")

	g := hfsm.NewStateGraph[string, string]()
	g.Configure("alive").Parallel(region)

	sm, err := hfsm.NewStateMachine(g, "alive")
	require.NoError(t, err)

	require.NoError(t, sm.Fire("migrate"))
	snapshot, err := sm.GetStateMachineState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alive[germany]", snapshot.String())
}

func TestRegion_EntryActionOfInitialStateInRegion(t *testing.T) {
	var log []string
	region := hfsm.NewRegion[string, string]("location", "holland")
	region.Graph().EnableEntryActionOfInitialState()
	region.Configure("holland").OnEntry(func(context.Context, *hfsm.MachineContext, hfsm.Transition[string, string], ...any) error {
		log = append(log, "enter holland")
		return nil
	})

	g := hfsm.NewStateGraph[string, string]()
	g.Configure("egg").Permit("hatch", "alive")
	g.Configure("alive").Parallel(region)
	sm, err := hfsm.NewStateMachine(g, "egg")
	require.NoError(t, err)

	require.NoError(t, sm.Fire("hatch"))
	assert.Equal(t, []string{"enter holland"}, log)
}

func TestRegion_SubstateOfParallelStateRelays(t *testing.T) {
	region := hfsm.NewRegion[string, string]("location", "holland")
	region.Configure("holland").Permit("migrate", "germany")

	g := hfsm.NewStateGraph[string, string]()
	g.Configure("egg").Permit("hatch", "nesting")
	g.Configure("alive").Parallel(region)
	g.Configure("nesting").
		SubstateOf("alive").
		Permit("fledge", "flying")
	g.Configure("flying").SubstateOf("alive")

	sm, err := hfsm.NewStateMachine(g, "egg")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, sm.Fire("hatch"))
	require.NoError(t, sm.Fire("migrate"))

	snapshot, err := sm.GetStateMachineState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alive[nesting, germany]", snapshot.String())

	// Moving between substates of the parallel state keeps its regions.
	require.NoError(t, sm.Fire("fledge"))
	snapshot, err = sm.GetStateMachineState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alive[flying, germany]", snapshot.String())
}

func TestRegion_IsInStateAcrossBoundary(t *testing.T) {
	inner := hfsm.NewRegion[string, string]("inner", "low")
	inner.Configure("low").Permit("rise", "high")

	var exitContext *hfsm.MachineContext
	var checked []bool
	outer := hfsm.NewRegion[string, string]("outer", "left")
	outer.Configure("left").Parallel(inner)
	outer.Configure("left").OnExit(func(_ context.Context, mc *hfsm.MachineContext, _ hfsm.Transition[string, string], _ ...any) error {
		exitContext = mc
		return nil
	})
	outer.Configure("left").Permit("swap", "right")

	g := hfsm.NewStateGraph[string, string]()
	g.Configure("root").Parallel(outer)
	sm, err := hfsm.NewStateMachine(g, "root")
	require.NoError(t, err)
	ctx := context.Background()

	for _, state := range []string{"root", "left", "low"} {
		ok, err := sm.IsInState(ctx, state)
		require.NoError(t, err)
		checked = append(checked, ok)
	}
	assert.Equal(t, []bool{true, true, true}, checked)

	require.NoError(t, sm.Fire("rise"))
	snapshot, err := sm.GetStateMachineState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "root[left[high]]", snapshot.String())

	require.NoError(t, sm.Fire("swap"))
	snapshot, err = sm.GetStateMachineState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "root[right]", snapshot.String())
	assert.Same(t, sm.MachineContext(), exitContext)
}

func TestRegion_GuardsSeeOwnerStateThroughContext(t *testing.T) {
	region := hfsm.NewRegion[string, string]("location", "holland")
	region.Configure("holland").PermitIf("migrate", "germany", func(_ context.Context, mc *hfsm.MachineContext, _ ...any) bool {
		season, _ := hfsm.Attribute[string](mc, "season")
		return season == "winter"
	})

	g := hfsm.NewStateGraph[string, string]()
	g.Configure("alive").Parallel(region)
	mc := hfsm.NewMachineContext()
	sm, err := hfsm.NewStateMachine(g, "alive", hfsm.WithMachineContext(mc))
	require.NoError(t, err)

	err = sm.Fire("migrate")
	var unhandled *hfsm.UnhandledTriggerError
	require.ErrorAs(t, err, &unhandled)

	mc.Set("season", "winter")
	require.NoError(t, sm.Fire("migrate"))
	ok, err := sm.IsInState(context.Background(), "germany")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegion_ParallelConfigurationErrors(t *testing.T) {
	g := hfsm.NewStateGraph[string, string]()

	assert.PanicsWithError(t, (&hfsm.ConfigurationError{
		State:   "alive",
		Message: "region must have a graph",
		Err:     hfsm.ErrMissingRegion,
	}).Error(), func() {
		g.Configure("alive").Parallel(nil)
	})

	self := hfsm.NewRegionWithGraph("self", "alive", g)
	assert.Panics(t, func() {
		g.Configure("alive").Parallel(self)
	})
}

func TestRegion_GraphSealedWithOwner(t *testing.T) {
	region := hfsm.NewRegion[string, string]("location", "holland")
	g := hfsm.NewStateGraph[string, string]()
	g.Configure("alive").Parallel(region)

	_, err := hfsm.NewStateMachine(g, "egg")
	require.NoError(t, err)

	assert.True(t, region.Graph().IsSealed())
	assert.Panics(t, func() { region.Configure("germany") })
}

func TestRegion_GetInfo(t *testing.T) {
	var log []string
	sm := bird(t, &log)

	info := sm.GetInfo()
	var alive *hfsm.StateInfo
	for _, s := range info.States {
		if s.UnderlyingState == "alive" {
			alive = s
		}
	}
	require.NotNil(t, alive)
	assert.True(t, alive.IsParallel())
	require.Len(t, alive.Regions, 2)
	assert.Equal(t, "location", alive.Regions[0].Name)
	assert.Equal(t, "holland", alive.Regions[0].Info.InitialState.UnderlyingState)
	assert.Equal(t, "mood", alive.Regions[1].Name)
}
