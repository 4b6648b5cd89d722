package hfsm

import "fmt"

// StateConfiguration provides a fluent interface for configuring state behaviour.
// Invalid configurations panic with a *ConfigurationError.
type StateConfiguration[S, T comparable] struct {
	node  *StateNode[S, T]
	graph *StateGraph[S, T]
}

func newStateConfiguration[S, T comparable](node *StateNode[S, T], graph *StateGraph[S, T]) *StateConfiguration[S, T] {
	return &StateConfiguration[S, T]{node: node, graph: graph}
}

// State returns the state being configured.
func (sc *StateConfiguration[S, T]) State() S {
	return sc.node.state
}

// Node returns the node being configured.
func (sc *StateConfiguration[S, T]) Node() *StateNode[S, T] {
	return sc.node
}

// Permit configures the state to transition to dst when tr is fired. The
// actions run between the exit and entry actions.
func (sc *StateConfiguration[S, T]) Permit(tr T, dst S, actions ...ActionFunc[S, T]) *StateConfiguration[S, T] {
	return sc.PermitIf(tr, dst, nil, actions...)
}

// PermitIf configures the state to transition to dst when tr is fired and the
// guard is met.
func (sc *StateConfiguration[S, T]) PermitIf(tr T, dst S, guard GuardFunc, actions ...ActionFunc[S, T]) *StateConfiguration[S, T] {
	sc.enforceNotIdentityTransition(dst)
	return sc.Behaviour(NewTransitioningTriggerBehaviour(tr, dst, NewTransitionGuard(guard, ""), actions...))
}

// PermitReentry configures the state to re-enter itself when tr is fired.
// Only this state's exit and entry actions run; superstates are not left.
func (sc *StateConfiguration[S, T]) PermitReentry(tr T, actions ...ActionFunc[S, T]) *StateConfiguration[S, T] {
	return sc.PermitReentryIf(tr, nil, actions...)
}

// PermitReentryIf configures the state to re-enter itself when tr is fired and
// the guard is met.
func (sc *StateConfiguration[S, T]) PermitReentryIf(tr T, guard GuardFunc, actions ...ActionFunc[S, T]) *StateConfiguration[S, T] {
	return sc.Behaviour(NewTransitioningTriggerBehaviour(tr, sc.node.state, NewTransitionGuard(guard, ""), actions...))
}

// Ignore configures the state to consume tr without changing state.
func (sc *StateConfiguration[S, T]) Ignore(tr T) *StateConfiguration[S, T] {
	return sc.IgnoreIf(tr, nil)
}

// IgnoreIf configures the state to consume tr without changing state when the
// guard is met.
func (sc *StateConfiguration[S, T]) IgnoreIf(tr T, guard GuardFunc) *StateConfiguration[S, T] {
	return sc.Behaviour(NewIgnoredTriggerBehaviour[S](tr, NewTransitionGuard(guard, "")))
}

// PermitDynamic configures the state to transition to the state returned by
// selector when tr is fired.
func (sc *StateConfiguration[S, T]) PermitDynamic(tr T, selector StateSelector[S], actions ...ActionFunc[S, T]) *StateConfiguration[S, T] {
	return sc.PermitDynamicIf(tr, selector, nil, actions...)
}

// PermitDynamicIf configures the state to transition to the state returned by
// selector when tr is fired and the guard is met.
func (sc *StateConfiguration[S, T]) PermitDynamicIf(tr T, selector StateSelector[S], guard GuardFunc, actions ...ActionFunc[S, T]) *StateConfiguration[S, T] {
	return sc.Behaviour(NewDynamicTriggerBehaviour(tr, selector, NewTransitionGuard(guard, ""), actions...))
}

// Behaviour registers a prebuilt trigger behaviour, for callers that need to
// describe their guards.
func (sc *StateConfiguration[S, T]) Behaviour(behaviour TriggerBehaviour[S, T]) *StateConfiguration[S, T] {
	sc.graph.mustBeMutable(sc.node.state)
	sc.node.AddTriggerBehaviour(behaviour)
	return sc
}

// OnEntry configures an action to be executed when entering this state.
func (sc *StateConfiguration[S, T]) OnEntry(action ActionFunc[S, T]) *StateConfiguration[S, T] {
	sc.graph.mustBeMutable(sc.node.state)
	sc.node.AddEntryAction(NewEntryActionBehaviour(action, CreateInvocationInfo(action, "")))
	return sc
}

// OnEntryFrom configures an action to be executed when this state is entered
// by tr. It does not run when the state is entered as the initial state.
func (sc *StateConfiguration[S, T]) OnEntryFrom(tr T, action ActionFunc[S, T]) *StateConfiguration[S, T] {
	sc.graph.mustBeMutable(sc.node.state)
	sc.node.AddEntryAction(NewEntryActionBehaviourFrom(tr, action, CreateInvocationInfo(action, "")))
	return sc
}

// OnExit configures an action to be executed when exiting this state.
func (sc *StateConfiguration[S, T]) OnExit(action ActionFunc[S, T]) *StateConfiguration[S, T] {
	sc.graph.mustBeMutable(sc.node.state)
	sc.node.AddExitAction(NewExitActionBehaviour(action, CreateInvocationInfo(action, "")))
	return sc
}

// SubstateOf sets the superstate of this state. A superstate that is this
// state, or one of its substates, panics with ErrCyclicHierarchy.
func (sc *StateConfiguration[S, T]) SubstateOf(superstate S) *StateConfiguration[S, T] {
	sc.graph.mustBeMutable(sc.node.state)
	state := sc.node.state
	super := sc.graph.getOrCreateNode(superstate)
	if super.IsIncludedIn(state) {
		panic(&ConfigurationError{
			State:   state,
			Message: fmt.Sprintf("configuring '%v' as a substate of '%v' creates a cycle", state, superstate),
			Err:     ErrCyclicHierarchy,
		})
	}

	if previous := sc.node.Superstate(); previous != nil {
		previous.substates = removeState(previous.substates, state)
	}
	sc.node.superstate = superstate
	sc.node.hasSuperstate = true
	super.substates = append(super.substates, state)
	return sc
}

// Parallel adds an orthogonal region to this state. Entering the state starts
// a fresh instance of every region.
func (sc *StateConfiguration[S, T]) Parallel(region *RegionConfig[S, T]) *StateConfiguration[S, T] {
	sc.graph.mustBeMutable(sc.node.state)
	if region == nil || region.graph == nil {
		panic(&ConfigurationError{State: sc.node.state, Message: "region must have a graph", Err: ErrMissingRegion})
	}
	if region.graph == sc.graph {
		panic(&ConfigurationError{
			State:   sc.node.state,
			Message: fmt.Sprintf("region '%s' cannot reuse the graph that owns it", region.name),
			Err:     ErrCyclicHierarchy,
		})
	}
	sc.node.regions = append(sc.node.regions, region)
	return sc
}

func (sc *StateConfiguration[S, T]) enforceNotIdentityTransition(dst S) {
	if sc.node.state == dst {
		panic(&ConfigurationError{
			State: dst,
			Message: "Permit() requires that the destination state is not equal to the source state. " +
				"To accept a trigger without changing state, use either Ignore() or PermitReentry()",
			Err: ErrIdentityTransitionNotAllowed,
		})
	}
}

func removeState[S comparable](states []S, state S) []S {
	result := states[:0]
	for _, s := range states {
		if s != state {
			result = append(result, s)
		}
	}
	return result
}
