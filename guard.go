package hfsm

import "context"

// GuardFunc reports whether a trigger behaviour applies. It receives the
// shared machine context and the arguments passed to Fire.
type GuardFunc func(ctx context.Context, mc *MachineContext, args ...any) bool

// GuardCondition represents a single guard condition with its method description.
type GuardCondition struct {
	Guard GuardFunc

	methodDescription InvocationInfo
}

// NewGuardCondition creates a new guard condition.
func NewGuardCondition(guard GuardFunc, description InvocationInfo) GuardCondition {
	return GuardCondition{
		Guard:             guard,
		methodDescription: description,
	}
}

// Description returns the description of the guard method.
func (g GuardCondition) Description() string {
	return g.methodDescription.Description()
}

// MethodDescription returns the full method description.
func (g GuardCondition) MethodDescription() InvocationInfo {
	return g.methodDescription
}

// IsMet evaluates the guard. A guard that panics is treated as not met, so a
// faulty guard never aborts trigger resolution.
func (g GuardCondition) IsMet(ctx context.Context, mc *MachineContext, args ...any) (met bool) {
	if g.Guard == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			met = false
		}
	}()
	return g.Guard(ctx, mc, args...)
}

// TransitionGuard contains a list of guard conditions that must all be met for a transition.
type TransitionGuard struct {
	Conditions []GuardCondition
}

// EmptyTransitionGuard is a transition guard with no conditions (always passes).
var EmptyTransitionGuard = TransitionGuard{}

// NewTransitionGuard creates a transition guard from a guard function. The
// description is used by introspection; when empty, the function name is used.
func NewTransitionGuard(guard GuardFunc, description string) TransitionGuard {
	if guard == nil {
		return EmptyTransitionGuard
	}
	return TransitionGuard{
		Conditions: []GuardCondition{
			NewGuardCondition(guard, CreateInvocationInfo(guard, description)),
		},
	}
}

// GuardConditionsMet returns true if all guard conditions are met.
func (tg TransitionGuard) GuardConditionsMet(ctx context.Context, mc *MachineContext, args ...any) bool {
	for _, c := range tg.Conditions {
		if !c.IsMet(ctx, mc, args...) {
			return false
		}
	}
	return true
}

// UnmetGuardConditions returns the descriptions of all guard conditions that are not met.
func (tg TransitionGuard) UnmetGuardConditions(ctx context.Context, mc *MachineContext, args ...any) []string {
	var unmet []string
	for _, c := range tg.Conditions {
		if !c.IsMet(ctx, mc, args...) {
			unmet = append(unmet, c.Description())
		}
	}
	return unmet
}

// IsEmpty returns true if the transition guard has no conditions.
func (tg TransitionGuard) IsEmpty() bool {
	return len(tg.Conditions) == 0
}
