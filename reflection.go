package hfsm

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// InvocationInfo describes a method - either an action or a guard condition.
type InvocationInfo struct {
	// MethodName is the name of the invoked method.
	MethodName string

	description string
}

// DefaultFunctionDescription is the text returned for compiler-generated functions
// where the caller has not specified a description.
var DefaultFunctionDescription = "Function"

// NullString is the string representation of a null value.
const NullString = "<null>"

// NewInvocationInfo creates a new InvocationInfo.
func NewInvocationInfo(methodName, description string) InvocationInfo {
	return InvocationInfo{
		MethodName:  methodName,
		description: description,
	}
}

// CreateInvocationInfo creates InvocationInfo from a function and description.
func CreateInvocationInfo(fn any, description string) InvocationInfo {
	return NewInvocationInfo(getFunctionName(fn), description)
}

// Description returns the user-specified description if there is one,
// DefaultFunctionDescription for anonymous functions, or the method name.
func (i InvocationInfo) Description() string {
	if i.description != "" {
		return i.description
	}
	if i.MethodName == "" {
		return NullString
	}
	if strings.Contains(i.MethodName, "func") || strings.Contains(i.MethodName, ".") {
		return DefaultFunctionDescription
	}
	return i.MethodName
}

func getFunctionName(fn any) string {
	if fn == nil {
		return ""
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	name := runtime.FuncForPC(v.Pointer()).Name()
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	// package.Name -> Name
	if idx := strings.Index(name, "."); idx >= 0 && !strings.Contains(name[idx+1:], ".") {
		name = name[idx+1:]
	}
	return name
}

// ActionInfo describes an action with optional trigger information.
type ActionInfo struct {
	InvocationInfo

	// FromTrigger is the trigger that causes this action to execute (optional).
	FromTrigger any
}

// TriggerInfo describes a trigger.
type TriggerInfo struct {
	UnderlyingTrigger any
}

// String returns the string representation of the trigger.
func (t TriggerInfo) String() string {
	if t.UnderlyingTrigger == nil {
		return NullString
	}
	return fmt.Sprintf("%v", t.UnderlyingTrigger)
}

// StateMachineInfo exposes the states, transitions, actions and regions of a
// state graph.
type StateMachineInfo struct {
	InitialState *StateInfo
	States       []*StateInfo
	StateType    string
	TriggerType  string
}

// StateInfo describes a configured state.
type StateInfo struct {
	UnderlyingState any

	Superstate *StateInfo
	Substates  []*StateInfo

	EntryActions []ActionInfo
	ExitActions  []InvocationInfo

	FixedTransitions   []FixedTransitionInfo
	DynamicTransitions []DynamicTransitionInfo
	IgnoredTriggers    []IgnoredTransitionInfo

	// Regions are the parallel regions owned by this state.
	Regions []*RegionInfo
}

// String returns the string representation of the state.
func (s *StateInfo) String() string {
	if s == nil || s.UnderlyingState == nil {
		return NullString
	}
	return fmt.Sprintf("%v", s.UnderlyingState)
}

// IsParallel reports whether the state owns regions.
func (s *StateInfo) IsParallel() bool {
	return len(s.Regions) > 0
}

// Transitions returns all transitions (both fixed and dynamic) defined for this state.
func (s *StateInfo) Transitions() []TransitionInfo {
	result := make([]TransitionInfo, 0, len(s.FixedTransitions)+len(s.DynamicTransitions))
	for i := range s.FixedTransitions {
		result = append(result, &s.FixedTransitions[i])
	}
	for i := range s.DynamicTransitions {
		result = append(result, &s.DynamicTransitions[i])
	}
	return result
}

// RegionInfo describes one parallel region.
type RegionInfo struct {
	Name string
	Info *StateMachineInfo
}

// TransitionInfo is the base interface for transition information.
type TransitionInfo interface {
	GetTrigger() TriggerInfo
	GetGuardConditions() []InvocationInfo
}

type transitionInfoBase struct {
	Trigger         TriggerInfo
	GuardConditions []InvocationInfo
}

func (t *transitionInfoBase) GetTrigger() TriggerInfo {
	return t.Trigger
}

func (t *transitionInfoBase) GetGuardConditions() []InvocationInfo {
	return t.GuardConditions
}

// FixedTransitionInfo describes a transition to a known destination.
type FixedTransitionInfo struct {
	transitionInfoBase

	DestinationState *StateInfo
}

// DynamicTransitionInfo describes a transition whose destination is computed
// when the trigger fires.
type DynamicTransitionInfo struct {
	transitionInfoBase

	DestinationStateSelectorDescription InvocationInfo
}

// IgnoredTransitionInfo describes a trigger that is ignored in a state.
type IgnoredTransitionInfo struct {
	transitionInfoBase
}
