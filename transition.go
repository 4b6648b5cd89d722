package hfsm

// Transition describes a state transition.
type Transition[S, T comparable] struct {
	// Source is the state transitioned from.
	Source S

	// Destination is the state transitioned to.
	Destination S

	// Trigger is the trigger that caused the transition. It is the zero value
	// for the initial transition.
	Trigger T

	isInitial bool
}

// NewTransition creates a new transition.
func NewTransition[S, T comparable](source, destination S, trigger T) Transition[S, T] {
	return Transition[S, T]{
		Source:      source,
		Destination: destination,
		Trigger:     trigger,
	}
}

// NewInitialTransition creates the transition used to enter the initial state
// of a machine. It carries no trigger.
func NewInitialTransition[S, T comparable](state S) Transition[S, T] {
	return Transition[S, T]{
		Source:      state,
		Destination: state,
		isInitial:   true,
	}
}

// IsReentry returns true if the transition is a re-entry, i.e., the identity transition.
func (t Transition[S, T]) IsReentry() bool {
	return t.Source == t.Destination
}

// IsInitial returns true if this is an initial transition.
func (t Transition[S, T]) IsInitial() bool {
	return t.isInitial
}
