// Package hfsm provides a generic hierarchical state machine with parallel
// regions.
//
// A StateGraph describes states and the triggers they accept. Machines built
// over the graph track the current state and drive it by firing triggers.
// Supported features:
//
//   - Generic types for states and triggers
//   - Guard conditions, with ambiguous guards reported as errors
//   - Entry and exit actions, and entry actions filtered by trigger
//   - Hierarchical states (substates and superstates)
//   - Parallel states made of independently configured regions
//   - Parameterized triggers
//   - Dynamic transitions and reentry
//   - Snapshots of the active configuration
//   - Introspection and graph generation
//
// # Basic Usage
//
// Configure a graph:
//
//	g := hfsm.NewStateGraph[State, Trigger]()
//	g.Configure(StateA).
//	    Permit(TriggerX, StateB).
//	    OnEntry(enterA)
//
// Build a machine over it and fire triggers:
//
//	sm, err := hfsm.NewStateMachine(g, StateA)
//	err = sm.Fire(TriggerX)
//
// Building the first machine seals the graph; further configuration panics.
// Any number of machines can share one sealed graph.
//
// # Guards
//
// Add conditions to transitions:
//
//	g.Configure(StateA).
//	    PermitIf(TriggerX, StateB, func(ctx context.Context, mc *hfsm.MachineContext, args ...any) bool {
//	        return someCondition
//	    })
//
// At most one guard may be met for a trigger in a state.
//
// # Hierarchical States
//
//	g.Configure(StateB).SubstateOf(StateA)
//
// # Parallel States
//
// A region is a separately configured graph with its own initial state.
// Entering a parallel state starts a fresh instance of each of its regions.
// Triggers the state does not handle are offered to every live region:
//
//	location := hfsm.NewRegion[string, string]("location", "holland")
//	location.Configure("holland").Permit("migrate", "germany")
//	g.Configure("alive").Parallel(location)
//
// # Graph Generation
//
// Export to DOT or Mermaid format:
//
//	import "github.com/atlekbai/hfsm/graph"
//	dot := graph.UmlDotGraph(sm.GetInfo())
package hfsm
