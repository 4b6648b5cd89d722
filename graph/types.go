// Package graph renders state machine descriptions as DOT or Mermaid
// diagrams. Parallel states are drawn with one nested section per region.
package graph

import (
	"github.com/atlekbai/hfsm"
)

// State is a node of the rendered graph.
type State struct {
	// StateName is the display name of the state.
	StateName string

	// NodeName is the identifier used for the node.
	NodeName string

	EntryActions []string
	ExitActions  []string

	// Leaving are the transitions leaving this state.
	Leaving []*Transition

	// Arriving are the transitions arriving at this state.
	Arriving []*Transition

	// SuperState is the enclosing state, if any.
	SuperState *SuperState

	// Regions are the parallel regions of the state, each with its own graph.
	Regions []*Region

	// StateInfo is the introspection record the node was built from.
	StateInfo *hfsm.StateInfo
}

// IsCluster reports whether the state is drawn as a container, either
// because it has substates or because it is parallel.
func (s *State) IsCluster() bool {
	if s.StateInfo != nil && len(s.StateInfo.Substates) > 0 {
		return true
	}
	return len(s.Regions) > 0
}

// SuperState is a state drawn as a container of other states.
type SuperState struct {
	*State

	SubStates []*State
}

// Region is one orthogonal section of a parallel state.
type Region struct {
	// Name is the region name.
	Name string

	// Owner is the parallel state the region belongs to.
	Owner *State

	// Graph is the region's own graph.
	Graph *StateGraph
}

// NodePrefix is prepended to node names inside the region, so that DOT
// identifiers stay unique across regions.
func (r *Region) NodePrefix() string {
	return r.Owner.NodeName + "_" + r.Name
}

// Decision is the choice node of a dynamic transition.
type Decision struct {
	NodeName string

	// Method describes the destination selector.
	Method hfsm.InvocationInfo

	Leaving  []*Transition
	Arriving []*Transition
}

// Transition is an edge of the rendered graph.
type Transition struct {
	Trigger hfsm.TriggerInfo

	SourceState *State

	// DestinationState is nil when the edge ends in a decision node.
	DestinationState *State

	// Decision is the choice node of a dynamic transition.
	Decision *Decision

	Guards []hfsm.InvocationInfo

	// DestinationEntryActions are the trigger-filtered entry actions that run
	// at the destination.
	DestinationEntryActions []hfsm.ActionInfo

	// ExecuteEntryExitActions is false for ignored triggers.
	ExecuteEntryExitActions bool
}

// IsStay reports whether the edge loops back to its source.
func (t *Transition) IsStay() bool {
	return t.DestinationState != nil && t.SourceState == t.DestinationState
}
