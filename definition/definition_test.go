package definition_test

import (
	"context"
	"testing"

	"github.com/atlekbai/hfsm"
	"github.com/atlekbai/hfsm/definition"
	"github.com/atlekbai/hfsm/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadBird(t *testing.T) *definition.Definition {
	t.Helper()
	def, err := definition.Load("testdata/bird.yaml")
	require.NoError(t, err)
	return def
}

func newMachine(t *testing.T, def *definition.Definition) *hfsm.StateMachine[string, string] {
	t.Helper()
	g, err := def.Build()
	require.NoError(t, err)
	sm, err := hfsm.NewStateMachine(g, def.Initial)
	require.NoError(t, err)
	return sm
}

func snapshot(t *testing.T, sm *hfsm.StateMachine[string, string]) string {
	t.Helper()
	state, err := sm.GetStateMachineState(context.Background())
	require.NoError(t, err)
	return state.String()
}

func TestLoad(t *testing.T) {
	def := loadBird(t)

	assert.Equal(t, "bird", def.Name)
	assert.Equal(t, "egg", def.Initial)
	assert.True(t, def.EntryOfInitial)
	assert.Len(t, def.States, 5)

	alive := def.States["alive"]
	assert.Equal(t, map[string]string{"die": "dead"}, alive.Permit)
	assert.Equal(t, []string{"molt"}, alive.Reentry)
	require.Len(t, alive.Regions, 2)
	assert.Equal(t, "location", alive.Regions[0].Name)
	assert.Equal(t, "holland", alive.Regions[0].Initial)
	assert.Equal(t, []string{"migrate"}, alive.Regions[1].States["scared"].Ignore)
	require.Len(t, alive.PermitIf, 1)
	assert.Equal(t, definition.Conditional{Trigger: "lay", To: "nesting", Attr: "season", Equals: "spring"}, alive.PermitIf[0])
	assert.Equal(t, "alive", def.States["nesting"].SubstateOf)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := definition.Load("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := definition.Parse([]byte(`
initial: a
states:
  a:
    permits: {go: b}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permits")
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := definition.Parse([]byte("initial: [a"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{
			name: "missing initial",
			doc:  "states: {a: {}}",
			want: []string{"initial state is not set"},
		},
		{
			name: "undefined initial",
			doc:  "initial: b\nstates: {a: {}}",
			want: []string{"initial state 'b' is not defined"},
		},
		{
			name: "dangling permit",
			doc:  "initial: a\nstates: {a: {permit: {go: b}}}",
			want: []string{"state 'a': permit 'go' targets undefined state 'b'"},
		},
		{
			name: "identity permit",
			doc:  "initial: a\nstates: {a: {permit: {go: a}}}",
			want: []string{"state 'a': permit 'go' targets its own state, use reentry"},
		},
		{
			name: "undefined superstate",
			doc:  "initial: a\nstates: {a: {substateOf: b}}",
			want: []string{"state 'a': superstate 'b' is not defined"},
		},
		{
			name: "dynamic without default",
			doc:  "initial: a\nstates: {a: {dynamic: [{trigger: go, attr: x, cases: {'1': c}}]}}",
			want: []string{
				"state 'a': dynamic 'go' has no default",
				"state 'a': dynamic 'go' case '1' targets undefined state 'c'",
			},
		},
		{
			name: "region errors are scoped",
			doc:  "initial: a\nstates: {a: {regions: [{name: r, initial: x, states: {y: {}}}, {name: r, initial: y, states: {y: {}}}]}}",
			want: []string{
				"region 'a.r': initial state 'x' is not defined",
				"state 'a': duplicate region 'r'",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			def, err := definition.Parse([]byte(tc.doc))
			require.NoError(t, err)

			err = def.Validate()
			require.Error(t, err)
			for _, want := range tc.want {
				assert.Contains(t, err.Error(), want)
			}

			_, err = def.Build()
			assert.Error(t, err)
		})
	}
}

func TestValidate_Bird(t *testing.T) {
	assert.NoError(t, loadBird(t).Validate())
}

func TestBuild_CycleBecomesError(t *testing.T) {
	def, err := definition.Parse([]byte(`
initial: a
states:
  a: {substateOf: b}
  b: {substateOf: a}
`))
	require.NoError(t, err)

	_, err = def.Build()
	assert.ErrorIs(t, err, hfsm.ErrCyclicHierarchy)
}

func TestBuild_RunsTheMachine(t *testing.T) {
	sm := newMachine(t, loadBird(t))
	mc := sm.MachineContext()

	fed, ok := mc.Get("fed")
	assert.True(t, ok, "initial entry action ran")
	assert.Equal(t, false, fed)

	require.NoError(t, sm.Fire("hatch", "tweety"))
	assert.Equal(t, "alive[holland, calm]", snapshot(t, sm))
	name, _ := hfsm.Attribute[string](mc, "name")
	assert.Equal(t, "tweety", name)

	require.NoError(t, sm.Fire("migrate"))
	require.NoError(t, sm.Fire("startle"))
	require.NoError(t, sm.Fire("migrate"))
	assert.Equal(t, "alive[holland, scared]", snapshot(t, sm))

	require.NoError(t, sm.Fire("die"))
	assert.Equal(t, "dead", snapshot(t, sm))
}

func TestBuild_AttributeGuard(t *testing.T) {
	sm := newMachine(t, loadBird(t))
	require.NoError(t, sm.Fire("hatch"))

	err := sm.Fire("lay")
	var unhandled *hfsm.UnhandledTriggerError
	require.ErrorAs(t, err, &unhandled)
	assert.Equal(t, []string{"season == spring"}, unhandled.UnmetGuards)

	sm.MachineContext().Set("season", "spring")
	require.NoError(t, sm.Fire("lay"))
	assert.Equal(t, "alive[nesting, holland, calm]", snapshot(t, sm))

	require.NoError(t, sm.Fire("fly"))
	nested, _ := sm.MachineContext().Get("nested")
	assert.Equal(t, true, nested)
}

func TestBuild_DynamicDestination(t *testing.T) {
	sm := newMachine(t, loadBird(t))
	require.NoError(t, sm.Fire("hatch"))

	require.NoError(t, sm.Fire("rest"))
	assert.Equal(t, "alive[flying, holland, calm]", snapshot(t, sm))

	sm.MachineContext().Set("weather", "rain")
	require.NoError(t, sm.Fire("rest"))
	assert.Equal(t, "alive[nesting, holland, calm]", snapshot(t, sm))
}

func TestBuild_Graph(t *testing.T) {
	def := loadBird(t)
	g, err := def.Build()
	require.NoError(t, err)

	mermaid := graph.MermaidGraph(g.GetInfo(def.Initial), nil)

	assert.Contains(t, mermaid, "state alive {")
	assert.Contains(t, mermaid, "holland --> germany : migrate")
	assert.Contains(t, mermaid, "alive --> nesting : lay [season == spring]")
	assert.Contains(t, mermaid, "[*] --> egg")
}
