package hfsm

import (
	"fmt"
	"reflect"
)

// StateGraph maps states to their nodes. It is configured once, then shared
// by every StateMachine built over it. Building a machine seals the graph;
// configuring a sealed graph panics with ErrGraphSealed.
type StateGraph[S, T comparable] struct {
	nodes map[S]*StateNode[S, T]
	order []S

	triggerConfiguration map[T]*TriggerWithParameters[T]

	entryActionOfInitialState bool
	sealed                    bool
}

// NewStateGraph creates an empty graph.
func NewStateGraph[S, T comparable]() *StateGraph[S, T] {
	return &StateGraph[S, T]{
		nodes:                make(map[S]*StateNode[S, T]),
		triggerConfiguration: make(map[T]*TriggerWithParameters[T]),
	}
}

// Configure begins configuration of a state.
func (g *StateGraph[S, T]) Configure(state S) *StateConfiguration[S, T] {
	g.mustBeMutable(state)
	return newStateConfiguration(g.getOrCreateNode(state), g)
}

// SetTriggerParameters registers the argument types expected when trigger is
// fired. Fire rejects arguments that do not match.
func (g *StateGraph[S, T]) SetTriggerParameters(trigger T, argumentTypes ...reflect.Type) *TriggerWithParameters[T] {
	g.mustBeMutable(trigger)
	if _, ok := g.triggerConfiguration[trigger]; ok {
		panic(&ConfigurationError{
			State:   trigger,
			Message: fmt.Sprintf("parameters for the trigger '%v' have already been configured", trigger),
			Err:     ErrParameterMismatch,
		})
	}
	configuration := NewTriggerWithParameters(trigger, argumentTypes...)
	g.triggerConfiguration[trigger] = configuration
	return configuration
}

// EnableEntryActionOfInitialState makes machines built over this graph run
// the entry actions of their initial state, and its superstates, on
// construction.
func (g *StateGraph[S, T]) EnableEntryActionOfInitialState() *StateGraph[S, T] {
	g.mustBeMutable("entry action of initial state")
	g.entryActionOfInitialState = true
	return g
}

// IsEntryActionOfInitialStateEnabled reports whether initial entry actions run.
func (g *StateGraph[S, T]) IsEntryActionOfInitialStateEnabled() bool {
	return g.entryActionOfInitialState
}

// IsSealed reports whether a machine has been built over the graph.
func (g *StateGraph[S, T]) IsSealed() bool {
	return g.sealed
}

// Node returns the configured node for state.
func (g *StateGraph[S, T]) Node(state S) (*StateNode[S, T], bool) {
	n, ok := g.nodes[state]
	return n, ok
}

// States returns the configured states in configuration order.
func (g *StateGraph[S, T]) States() []S {
	return append([]S(nil), g.order...)
}

// TriggerParameters returns the parameter descriptor registered for trigger.
func (g *StateGraph[S, T]) TriggerParameters(trigger T) (*TriggerWithParameters[T], bool) {
	p, ok := g.triggerConfiguration[trigger]
	return p, ok
}

// node returns the node for state. Unconfigured states get a detached node
// with no behaviour so a machine can sit in a state nobody configured.
func (g *StateGraph[S, T]) node(state S) *StateNode[S, T] {
	if n, ok := g.nodes[state]; ok {
		return n
	}
	return newStateNode(state, g)
}

func (g *StateGraph[S, T]) getOrCreateNode(state S) *StateNode[S, T] {
	n, ok := g.nodes[state]
	if !ok {
		n = newStateNode(state, g)
		g.nodes[state] = n
		g.order = append(g.order, state)
	}
	return n
}

func (g *StateGraph[S, T]) validateParameters(trigger T, args []any) error {
	configuration, ok := g.triggerConfiguration[trigger]
	if !ok {
		return nil
	}
	return configuration.ValidateParameters(args)
}

func (g *StateGraph[S, T]) mustBeMutable(subject any) {
	if g.sealed {
		panic(&ConfigurationError{State: subject, Err: ErrGraphSealed})
	}
}

// seal freezes the graph and the graphs of all regions it owns.
func (g *StateGraph[S, T]) seal() {
	if g.sealed {
		return
	}
	g.sealed = true
	for _, state := range g.order {
		for _, region := range g.nodes[state].regions {
			region.graph.seal()
		}
	}
}

// GetInfo describes the graph for introspection, with initial as the entry
// point.
func (g *StateGraph[S, T]) GetInfo(initial S) *StateMachineInfo {
	infos := make(map[S]*StateInfo, len(g.nodes))
	for _, state := range g.order {
		infos[state] = g.createStateInfo(g.nodes[state])
	}
	if _, ok := infos[initial]; !ok {
		infos[initial] = &StateInfo{UnderlyingState: initial}
	}
	for _, state := range g.order {
		g.addStateRelationships(infos[state], g.nodes[state], infos)
	}

	states := make([]*StateInfo, 0, len(infos))
	for _, state := range g.order {
		states = append(states, infos[state])
	}
	if _, configured := g.nodes[initial]; !configured {
		states = append(states, infos[initial])
	}

	var zeroT T
	return &StateMachineInfo{
		InitialState: infos[initial],
		States:       states,
		StateType:    fmt.Sprintf("%T", initial),
		TriggerType:  fmt.Sprintf("%T", zeroT),
	}
}

func (g *StateGraph[S, T]) createStateInfo(node *StateNode[S, T]) *StateInfo {
	info := &StateInfo{UnderlyingState: node.state}

	for _, action := range node.entryActions {
		var from any
		if t := action.GetFromTrigger(); t != nil {
			from = *t
		}
		info.EntryActions = append(info.EntryActions, ActionInfo{InvocationInfo: action.GetDescription(), FromTrigger: from})
	}
	for _, action := range node.exitActions {
		info.ExitActions = append(info.ExitActions, action.GetDescription())
	}
	for _, region := range node.regions {
		info.Regions = append(info.Regions, &RegionInfo{
			Name: region.name,
			Info: region.graph.GetInfo(region.initialState),
		})
	}
	return info
}

func (g *StateGraph[S, T]) addStateRelationships(info *StateInfo, node *StateNode[S, T], infos map[S]*StateInfo) {
	if node.hasSuperstate {
		info.Superstate = infos[node.superstate]
	}
	for _, substate := range node.substates {
		info.Substates = append(info.Substates, infos[substate])
	}

	for _, trigger := range node.triggerOrder {
		for _, behaviour := range node.triggerBehaviours[trigger] {
			base := transitionInfoBase{
				Trigger:         TriggerInfo{UnderlyingTrigger: trigger},
				GuardConditions: guardDescriptions(behaviour.GetGuard()),
			}
			switch b := behaviour.(type) {
			case *TransitioningTriggerBehaviour[S, T]:
				destination, ok := infos[b.Destination]
				if !ok {
					destination = &StateInfo{UnderlyingState: b.Destination}
					infos[b.Destination] = destination
				}
				info.FixedTransitions = append(info.FixedTransitions, FixedTransitionInfo{
					transitionInfoBase: base,
					DestinationState:   destination,
				})
			case *DynamicTriggerBehaviour[S, T]:
				info.DynamicTransitions = append(info.DynamicTransitions, DynamicTransitionInfo{
					transitionInfoBase:                  base,
					DestinationStateSelectorDescription: b.SelectorDescription(),
				})
			case *IgnoredTriggerBehaviour[S, T]:
				info.IgnoredTriggers = append(info.IgnoredTriggers, IgnoredTransitionInfo{transitionInfoBase: base})
			}
		}
	}
}

func guardDescriptions(guard TransitionGuard) []InvocationInfo {
	result := make([]InvocationInfo, len(guard.Conditions))
	for i, c := range guard.Conditions {
		result[i] = c.MethodDescription()
	}
	return result
}
