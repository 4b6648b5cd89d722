package hfsm

import (
	"fmt"
	"reflect"
)

// TriggerWithParameters associates configured parameters with an underlying trigger value.
type TriggerWithParameters[T comparable] struct {
	underlyingTrigger T
	argumentTypes     []reflect.Type
}

// NewTriggerWithParameters creates a new configured trigger.
func NewTriggerWithParameters[T comparable](underlyingTrigger T, argumentTypes ...reflect.Type) *TriggerWithParameters[T] {
	return &TriggerWithParameters[T]{
		underlyingTrigger: underlyingTrigger,
		argumentTypes:     argumentTypes,
	}
}

// ArgumentTypes returns the argument types expected by this trigger.
func (t *TriggerWithParameters[T]) ArgumentTypes() []reflect.Type {
	return t.argumentTypes
}

// Trigger returns the underlying trigger value.
func (t *TriggerWithParameters[T]) Trigger() T {
	return t.underlyingTrigger
}

// ValidateParameters ensures that the supplied arguments are compatible with those configured for this trigger.
func (t *TriggerWithParameters[T]) ValidateParameters(args []any) error {
	if len(args) != len(t.argumentTypes) {
		return &ParameterMismatchError{
			Trigger: t.underlyingTrigger,
			Message: fmt.Sprintf("expected %d parameters but got %d", len(t.argumentTypes), len(args)),
		}
	}

	for i, expectedType := range t.argumentTypes {
		arg := args[i]
		if arg == nil {
			if nillable(expectedType) {
				continue
			}
			return &ParameterMismatchError{
				Trigger: t.underlyingTrigger,
				Message: fmt.Sprintf("argument at position %d is nil but expected type %v", i, expectedType),
			}
		}
		if argType := reflect.TypeOf(arg); !argType.AssignableTo(expectedType) {
			return &ParameterMismatchError{
				Trigger: t.underlyingTrigger,
				Message: fmt.Sprintf("argument at position %d is of type %v but expected type %v", i, argType, expectedType),
			}
		}
	}

	return nil
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return true
	default:
		return false
	}
}

// TypeOf returns the reflect.Type of A, for use with SetTriggerParameters.
func TypeOf[A any]() reflect.Type {
	return reflect.TypeFor[A]()
}

// Arg returns the argument at position i converted to A.
func Arg[A any](args []any, i int) (A, error) {
	var zero A
	if i < 0 || i >= len(args) {
		return zero, fmt.Errorf("%w: argument %d requested but %d supplied", ErrParameterMismatch, i, len(args))
	}
	a, ok := args[i].(A)
	if !ok {
		return zero, fmt.Errorf("%w: argument %d is of type %T, not %T", ErrParameterMismatch, i, args[i], zero)
	}
	return a, nil
}
