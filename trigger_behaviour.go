package hfsm

import "context"

// StateSelector computes the destination of a dynamic transition.
type StateSelector[S comparable] func(ctx context.Context, mc *MachineContext, args ...any) S

// TriggerBehaviour is the resolution unit bound to one trigger within one state.
type TriggerBehaviour[S, T comparable] interface {
	// GetTrigger returns the trigger associated with this behaviour.
	GetTrigger() T

	// GetGuard returns the transition guard for this trigger.
	GetGuard() TransitionGuard

	// GuardConditionsMet returns true if all guard conditions are met.
	GuardConditionsMet(ctx context.Context, mc *MachineContext, args ...any) bool

	// UnmetGuardConditions returns the descriptions of all unmet guard conditions.
	UnmetGuardConditions(ctx context.Context, mc *MachineContext, args ...any) []string

	// ResultsInTransitionFrom returns the destination state and true if firing
	// the trigger from source changes state.
	ResultsInTransitionFrom(ctx context.Context, mc *MachineContext, source S, args ...any) (S, bool)

	// PerformAction runs the transition actions.
	PerformAction(ctx context.Context, mc *MachineContext, t Transition[S, T], args ...any) error
}

type triggerBehaviourBase[S, T comparable] struct {
	trigger T
	guard   TransitionGuard
	actions []ActionFunc[S, T]
}

func (t *triggerBehaviourBase[S, T]) GetTrigger() T {
	return t.trigger
}

func (t *triggerBehaviourBase[S, T]) GetGuard() TransitionGuard {
	return t.guard
}

func (t *triggerBehaviourBase[S, T]) GuardConditionsMet(ctx context.Context, mc *MachineContext, args ...any) bool {
	return t.guard.GuardConditionsMet(ctx, mc, args...)
}

func (t *triggerBehaviourBase[S, T]) UnmetGuardConditions(ctx context.Context, mc *MachineContext, args ...any) []string {
	return t.guard.UnmetGuardConditions(ctx, mc, args...)
}

func (t *triggerBehaviourBase[S, T]) PerformAction(ctx context.Context, mc *MachineContext, tr Transition[S, T], args ...any) error {
	return runActions(ctx, mc, t.actions, tr, args...)
}

// TransitioningTriggerBehaviour transitions to a fixed destination. A
// destination equal to the owning state is a reentry.
type TransitioningTriggerBehaviour[S, T comparable] struct {
	triggerBehaviourBase[S, T]

	Destination S
}

// NewTransitioningTriggerBehaviour creates a new transitioning trigger behaviour.
func NewTransitioningTriggerBehaviour[S, T comparable](
	trigger T,
	destination S,
	guard TransitionGuard,
	actions ...ActionFunc[S, T],
) *TransitioningTriggerBehaviour[S, T] {
	return &TransitioningTriggerBehaviour[S, T]{
		triggerBehaviourBase: triggerBehaviourBase[S, T]{
			trigger: trigger,
			guard:   guard,
			actions: actions,
		},
		Destination: destination,
	}
}

func (b *TransitioningTriggerBehaviour[S, T]) ResultsInTransitionFrom(_ context.Context, _ *MachineContext, _ S, _ ...any) (S, bool) {
	return b.Destination, true
}

// DynamicTriggerBehaviour transitions to a destination computed by a selector.
type DynamicTriggerBehaviour[S, T comparable] struct {
	triggerBehaviourBase[S, T]

	destination         StateSelector[S]
	selectorDescription InvocationInfo
}

// NewDynamicTriggerBehaviour creates a new dynamic trigger behaviour.
func NewDynamicTriggerBehaviour[S, T comparable](
	trigger T,
	destination StateSelector[S],
	guard TransitionGuard,
	actions ...ActionFunc[S, T],
) *DynamicTriggerBehaviour[S, T] {
	return &DynamicTriggerBehaviour[S, T]{
		triggerBehaviourBase: triggerBehaviourBase[S, T]{
			trigger: trigger,
			guard:   guard,
			actions: actions,
		},
		destination:         destination,
		selectorDescription: CreateInvocationInfo(destination, ""),
	}
}

func (b *DynamicTriggerBehaviour[S, T]) ResultsInTransitionFrom(ctx context.Context, mc *MachineContext, _ S, args ...any) (S, bool) {
	return b.destination(ctx, mc, args...), true
}

// SelectorDescription describes the destination selector.
func (b *DynamicTriggerBehaviour[S, T]) SelectorDescription() InvocationInfo {
	return b.selectorDescription
}

// IgnoredTriggerBehaviour consumes a trigger without changing state.
type IgnoredTriggerBehaviour[S, T comparable] struct {
	triggerBehaviourBase[S, T]
}

// NewIgnoredTriggerBehaviour creates a new ignored trigger behaviour.
func NewIgnoredTriggerBehaviour[S, T comparable](trigger T, guard TransitionGuard) *IgnoredTriggerBehaviour[S, T] {
	return &IgnoredTriggerBehaviour[S, T]{
		triggerBehaviourBase: triggerBehaviourBase[S, T]{
			trigger: trigger,
			guard:   guard,
		},
	}
}

func (b *IgnoredTriggerBehaviour[S, T]) ResultsInTransitionFrom(_ context.Context, _ *MachineContext, _ S, _ ...any) (S, bool) {
	var zero S
	return zero, false
}

// TriggerBehaviourResult represents the result of finding a trigger behaviour.
type TriggerBehaviourResult[S, T comparable] struct {
	// Handler is the behaviour whose guard is met, or nil.
	Handler TriggerBehaviour[S, T]

	// UnmetGuardConditions describes the guards that blocked every candidate.
	UnmetGuardConditions []string
}
