package hfsm

import (
	"context"
	"fmt"
)

// StateNode models the behaviour of a state. Nodes live in the arena of the
// StateGraph that created them; superstate and substate relations are held as
// state keys resolved through that graph.
type StateNode[S, T comparable] struct {
	state S
	graph *StateGraph[S, T]

	superstate    S
	hasSuperstate bool
	substates     []S

	triggerBehaviours map[T][]TriggerBehaviour[S, T]
	triggerOrder      []T

	entryActions []EntryActionBehaviour[S, T]
	exitActions  []ExitActionBehaviour[S, T]

	regions []*RegionConfig[S, T]
}

func newStateNode[S, T comparable](state S, graph *StateGraph[S, T]) *StateNode[S, T] {
	return &StateNode[S, T]{
		state:             state,
		graph:             graph,
		triggerBehaviours: make(map[T][]TriggerBehaviour[S, T]),
	}
}

// UnderlyingState returns the state this node models.
func (sn *StateNode[S, T]) UnderlyingState() S {
	return sn.state
}

// Superstate returns the parent node, or nil for a root state.
func (sn *StateNode[S, T]) Superstate() *StateNode[S, T] {
	if !sn.hasSuperstate {
		return nil
	}
	return sn.graph.nodes[sn.superstate]
}

// GetSubstates returns the child nodes of this state.
func (sn *StateNode[S, T]) GetSubstates() []*StateNode[S, T] {
	result := make([]*StateNode[S, T], 0, len(sn.substates))
	for _, s := range sn.substates {
		result = append(result, sn.graph.nodes[s])
	}
	return result
}

// Regions returns the parallel regions owned by this state.
func (sn *StateNode[S, T]) Regions() []*RegionConfig[S, T] {
	return sn.regions
}

// IsParallel reports whether the state owns at least one region.
func (sn *StateNode[S, T]) IsParallel() bool {
	return len(sn.regions) > 0
}

// TriggerBehaviours returns the trigger behaviours map.
func (sn *StateNode[S, T]) TriggerBehaviours() map[T][]TriggerBehaviour[S, T] {
	return sn.triggerBehaviours
}

// EntryActions returns the entry actions.
func (sn *StateNode[S, T]) EntryActions() []EntryActionBehaviour[S, T] {
	return sn.entryActions
}

// ExitActions returns the exit actions.
func (sn *StateNode[S, T]) ExitActions() []ExitActionBehaviour[S, T] {
	return sn.exitActions
}

// AddTriggerBehaviour adds a trigger behaviour to this state.
func (sn *StateNode[S, T]) AddTriggerBehaviour(behaviour TriggerBehaviour[S, T]) {
	trigger := behaviour.GetTrigger()
	if _, ok := sn.triggerBehaviours[trigger]; !ok {
		sn.triggerOrder = append(sn.triggerOrder, trigger)
	}
	sn.triggerBehaviours[trigger] = append(sn.triggerBehaviours[trigger], behaviour)
}

// AddEntryAction adds an entry action to this state.
func (sn *StateNode[S, T]) AddEntryAction(action EntryActionBehaviour[S, T]) {
	sn.entryActions = append(sn.entryActions, action)
}

// AddExitAction adds an exit action to this state.
func (sn *StateNode[S, T]) AddExitAction(action ExitActionBehaviour[S, T]) {
	sn.exitActions = append(sn.exitActions, action)
}

// CanHandle returns true if this state, or one of its superstates, has a
// behaviour for the trigger whose guard is met.
func (sn *StateNode[S, T]) CanHandle(ctx context.Context, mc *MachineContext, trigger T, args ...any) (bool, error) {
	result, err := sn.TryFindHandler(ctx, mc, trigger, args...)
	if err != nil {
		return false, err
	}
	return result.Handler != nil, nil
}

// TryFindHandler looks for a handler on this state first and then up the
// superstate chain.
func (sn *StateNode[S, T]) TryFindHandler(ctx context.Context, mc *MachineContext, trigger T, args ...any) (*TriggerBehaviourResult[S, T], error) {
	result, err := sn.TryFindLocalHandler(ctx, mc, trigger, args...)
	if err != nil || result.Handler != nil {
		return result, err
	}

	super := sn.Superstate()
	if super == nil {
		return result, nil
	}
	superResult, err := super.TryFindHandler(ctx, mc, trigger, args...)
	if err != nil || superResult.Handler != nil {
		return superResult, err
	}
	result.UnmetGuardConditions = append(result.UnmetGuardConditions, superResult.UnmetGuardConditions...)
	return result, nil
}

// TryFindLocalHandler looks for a handler configured on this state only. More
// than one behaviour with a met guard is an AmbiguousGuardError.
func (sn *StateNode[S, T]) TryFindLocalHandler(ctx context.Context, mc *MachineContext, trigger T, args ...any) (*TriggerBehaviourResult[S, T], error) {
	result := &TriggerBehaviourResult[S, T]{}
	behaviours, exists := sn.triggerBehaviours[trigger]
	if !exists {
		return result, nil
	}

	var possible []TriggerBehaviour[S, T]
	for _, behaviour := range behaviours {
		unmet := behaviour.UnmetGuardConditions(ctx, mc, args...)
		if len(unmet) == 0 {
			possible = append(possible, behaviour)
		} else {
			result.UnmetGuardConditions = append(result.UnmetGuardConditions, unmet...)
		}
	}

	switch len(possible) {
	case 0:
		return result, nil
	case 1:
		return &TriggerBehaviourResult[S, T]{Handler: possible[0]}, nil
	default:
		return nil, &AmbiguousGuardError{State: sn.state, Trigger: trigger}
	}
}

// Enter runs entry actions for the transition. On reentry only this state's
// actions run; otherwise every superstate not already containing the source
// is entered first, outermost first.
func (sn *StateNode[S, T]) Enter(ctx context.Context, mc *MachineContext, t Transition[S, T], args ...any) error {
	if t.IsReentry() {
		return sn.executeEntryActions(ctx, mc, t, args...)
	}
	if sn.Includes(t.Source) {
		return nil
	}
	if super := sn.Superstate(); super != nil {
		if err := super.Enter(ctx, mc, t, args...); err != nil {
			return err
		}
	}
	return sn.executeEntryActions(ctx, mc, t, args...)
}

// InitEnter runs the entry actions of this state and all of its superstates,
// outermost first. It is used for the initial state of a machine.
func (sn *StateNode[S, T]) InitEnter(ctx context.Context, mc *MachineContext, t Transition[S, T]) error {
	if super := sn.Superstate(); super != nil {
		if err := super.InitEnter(ctx, mc, t); err != nil {
			return err
		}
	}
	return sn.executeEntryActions(ctx, mc, t)
}

// Exit runs exit actions for the transition. On reentry only this state's
// actions run; otherwise exiting stops at the first superstate that contains
// the destination.
func (sn *StateNode[S, T]) Exit(ctx context.Context, mc *MachineContext, t Transition[S, T], args ...any) error {
	if t.IsReentry() {
		return sn.executeExitActions(ctx, mc, t, args...)
	}
	if sn.Includes(t.Destination) {
		return nil
	}
	if err := sn.executeExitActions(ctx, mc, t, args...); err != nil {
		return err
	}
	if super := sn.Superstate(); super != nil {
		return super.Exit(ctx, mc, t, args...)
	}
	return nil
}

func (sn *StateNode[S, T]) executeEntryActions(ctx context.Context, mc *MachineContext, t Transition[S, T], args ...any) error {
	for _, action := range sn.entryActions {
		if err := action.Execute(ctx, mc, t, args...); err != nil {
			return err
		}
	}
	return nil
}

func (sn *StateNode[S, T]) executeExitActions(ctx context.Context, mc *MachineContext, t Transition[S, T], args ...any) error {
	for _, action := range sn.exitActions {
		if err := action.Execute(ctx, mc, t, args...); err != nil {
			return err
		}
	}
	return nil
}

// Includes returns true if this state or any of its substates is the specified state.
func (sn *StateNode[S, T]) Includes(state S) bool {
	if sn.state == state {
		return true
	}
	for _, substate := range sn.GetSubstates() {
		if substate.Includes(state) {
			return true
		}
	}
	return false
}

// IsIncludedIn returns true if this state is the specified state or a substate of it.
func (sn *StateNode[S, T]) IsIncludedIn(state S) bool {
	if sn.state == state {
		return true
	}
	if super := sn.Superstate(); super != nil {
		return super.IsIncludedIn(state)
	}
	return false
}

// GetPermittedTriggers returns the triggers that are currently permitted from this state.
func (sn *StateNode[S, T]) GetPermittedTriggers(ctx context.Context, mc *MachineContext, args ...any) []T {
	result := sn.GetLocalPermittedTriggers(ctx, mc, args...)

	if super := sn.Superstate(); super != nil {
		for _, trigger := range super.GetPermittedTriggers(ctx, mc, args...) {
			if !containsTrigger(result, trigger) {
				result = append(result, trigger)
			}
		}
	}

	return result
}

// GetLocalPermittedTriggers returns the triggers that are permitted from this state (not including superstates).
func (sn *StateNode[S, T]) GetLocalPermittedTriggers(ctx context.Context, mc *MachineContext, args ...any) []T {
	var result []T
	for _, trigger := range sn.triggerOrder {
		for _, behaviour := range sn.triggerBehaviours[trigger] {
			if behaviour.GuardConditionsMet(ctx, mc, args...) {
				result = append(result, trigger)
				break
			}
		}
	}
	return result
}

// String returns a string representation of this state.
func (sn *StateNode[S, T]) String() string {
	return fmt.Sprintf("%v", sn.state)
}

func containsTrigger[T comparable](triggers []T, trigger T) bool {
	for _, t := range triggers {
		if t == trigger {
			return true
		}
	}
	return false
}
