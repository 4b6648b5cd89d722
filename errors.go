package hfsm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIdentityTransitionNotAllowed is raised when Permit is configured with
	// the configured state as its destination.
	ErrIdentityTransitionNotAllowed = errors.New("hfsm: identity transition not allowed")

	// ErrCyclicHierarchy is raised when SubstateOf would create a cycle.
	ErrCyclicHierarchy = errors.New("hfsm: cyclic superstate hierarchy")

	// ErrGraphSealed is raised when a graph is configured after a state machine
	// has been built over it.
	ErrGraphSealed = errors.New("hfsm: graph is sealed")

	// ErrAmbiguousGuard is returned when more than one guard is true for the
	// same state and trigger.
	ErrAmbiguousGuard = errors.New("hfsm: ambiguous guard")

	// ErrUnhandledTrigger is returned by the default unhandled trigger action.
	ErrUnhandledTrigger = errors.New("hfsm: unhandled trigger")

	// ErrParameterMismatch is returned when fire arguments do not match the
	// parameters registered for a trigger.
	ErrParameterMismatch = errors.New("hfsm: parameter mismatch")

	// ErrMissingRegion is returned when a parallel state has no live region
	// instances.
	ErrMissingRegion = errors.New("hfsm: missing region instance")
)

// ConfigurationError describes an invalid graph configuration. The builder
// panics with a *ConfigurationError.
type ConfigurationError struct {
	State   any
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v (state '%v')", e.Err, e.State)
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// AmbiguousGuardError is returned when multiple permitted transitions are
// configured from a state for a trigger and their guards are all met.
type AmbiguousGuardError struct {
	State   any
	Trigger any
}

func (e *AmbiguousGuardError) Error() string {
	return fmt.Sprintf(
		"multiple permitted transitions are configured from state '%v' for trigger '%v'; guards should be mutually exclusive",
		e.State, e.Trigger)
}

func (e *AmbiguousGuardError) Is(target error) bool {
	return target == ErrAmbiguousGuard
}

// UnhandledTriggerError is returned when a trigger is fired from a state that
// does not have a valid transition for that trigger.
type UnhandledTriggerError struct {
	Trigger           any
	State             any
	UnmetGuards       []string
	PermittedTriggers []any
}

func (e *UnhandledTriggerError) Error() string {
	if len(e.UnmetGuards) > 0 {
		return fmt.Sprintf(
			"trigger '%v' is valid for transition from state '%v' "+
				"but guard conditions are not met. Guard conditions: %s",
			e.Trigger, e.State, strings.Join(e.UnmetGuards, ", "))
	}

	var permitted string
	if len(e.PermittedTriggers) > 0 {
		triggers := make([]string, len(e.PermittedTriggers))
		for i, t := range e.PermittedTriggers {
			triggers[i] = fmt.Sprintf("%v", t)
		}
		permitted = fmt.Sprintf(" Permitted triggers: %s.", strings.Join(triggers, ", "))
	} else {
		permitted = " No valid leaving transitions are permitted from state."
	}

	return fmt.Sprintf(
		"no valid leaving transitions are permitted from state '%v' for trigger '%v'.%s",
		e.State, e.Trigger, permitted)
}

func (e *UnhandledTriggerError) Is(target error) bool {
	return target == ErrUnhandledTrigger
}

// ParameterMismatchError indicates that fire arguments could not be matched
// to the parameter types registered for the trigger.
type ParameterMismatchError struct {
	Trigger any
	Message string
}

func (e *ParameterMismatchError) Error() string {
	return fmt.Sprintf("trigger '%v': %s", e.Trigger, e.Message)
}

func (e *ParameterMismatchError) Is(target error) bool {
	return target == ErrParameterMismatch
}

// MissingRegionError means a parallel state is active but has no region
// instances. It signals a defect rather than a recoverable condition.
type MissingRegionError struct {
	State any
}

func (e *MissingRegionError) Error() string {
	return fmt.Sprintf("parallel state '%v' has no region instances", e.State)
}

func (e *MissingRegionError) Is(target error) bool {
	return target == ErrMissingRegion
}
