package hfsm

import "context"

// ActionFunc is the single callback shape used for entry, exit and transition
// actions. Args are the values passed to Fire.
type ActionFunc[S, T comparable] func(ctx context.Context, mc *MachineContext, t Transition[S, T], args ...any) error

// EntryActionBehaviour is an action executed when a state is entered.
type EntryActionBehaviour[S, T comparable] struct {
	action      ActionFunc[S, T]
	description InvocationInfo

	// fromTrigger restricts the action to transitions caused by one trigger.
	fromTrigger *T
}

// NewEntryActionBehaviour creates an entry action that runs on every entry.
func NewEntryActionBehaviour[S, T comparable](action ActionFunc[S, T], description InvocationInfo) EntryActionBehaviour[S, T] {
	return EntryActionBehaviour[S, T]{action: action, description: description}
}

// NewEntryActionBehaviourFrom creates an entry action that runs only when the
// state is entered by the given trigger.
func NewEntryActionBehaviourFrom[S, T comparable](trigger T, action ActionFunc[S, T], description InvocationInfo) EntryActionBehaviour[S, T] {
	return EntryActionBehaviour[S, T]{action: action, description: description, fromTrigger: &trigger}
}

// Execute runs the action unless a trigger filter excludes the transition.
// The initial transition carries no trigger, so filtered actions never match it.
func (a EntryActionBehaviour[S, T]) Execute(ctx context.Context, mc *MachineContext, t Transition[S, T], args ...any) error {
	if a.fromTrigger != nil && (t.IsInitial() || *a.fromTrigger != t.Trigger) {
		return nil
	}
	return a.action(ctx, mc, t, args...)
}

// GetDescription returns the description of the action.
func (a EntryActionBehaviour[S, T]) GetDescription() InvocationInfo {
	return a.description
}

// GetFromTrigger returns the trigger this action is bound to (nil if not bound).
func (a EntryActionBehaviour[S, T]) GetFromTrigger() *T {
	return a.fromTrigger
}

// ExitActionBehaviour is an action executed when a state is exited.
type ExitActionBehaviour[S, T comparable] struct {
	action      ActionFunc[S, T]
	description InvocationInfo
}

// NewExitActionBehaviour creates a new exit action.
func NewExitActionBehaviour[S, T comparable](action ActionFunc[S, T], description InvocationInfo) ExitActionBehaviour[S, T] {
	return ExitActionBehaviour[S, T]{action: action, description: description}
}

func (a ExitActionBehaviour[S, T]) Execute(ctx context.Context, mc *MachineContext, t Transition[S, T], args ...any) error {
	return a.action(ctx, mc, t, args...)
}

// GetDescription returns the description of the action.
func (a ExitActionBehaviour[S, T]) GetDescription() InvocationInfo {
	return a.description
}

// runActions executes transition actions in registration order and stops at
// the first error.
func runActions[S, T comparable](ctx context.Context, mc *MachineContext, actions []ActionFunc[S, T], t Transition[S, T], args ...any) error {
	for _, action := range actions {
		if action == nil {
			continue
		}
		if err := action(ctx, mc, t, args...); err != nil {
			return err
		}
	}
	return nil
}
