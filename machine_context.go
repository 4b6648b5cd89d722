package hfsm

import "maps"

// MachineContext is the key-value store shared by a state machine and all of
// its region instances. Every guard, selector and action receives it.
//
// MachineContext is not safe for concurrent use.
type MachineContext struct {
	attributes map[string]any
}

// NewMachineContext creates an empty context.
func NewMachineContext() *MachineContext {
	return &MachineContext{attributes: make(map[string]any)}
}

// Get returns the attribute stored under name.
func (mc *MachineContext) Get(name string) (any, bool) {
	v, ok := mc.attributes[name]
	return v, ok
}

// Set stores value under name, replacing any previous value.
func (mc *MachineContext) Set(name string, value any) {
	if mc.attributes == nil {
		mc.attributes = make(map[string]any)
	}
	mc.attributes[name] = value
}

// GetOrSet returns the attribute stored under name. If there is none, initial
// is stored and returned.
func (mc *MachineContext) GetOrSet(name string, initial any) any {
	if v, ok := mc.attributes[name]; ok {
		return v
	}
	mc.Set(name, initial)
	return initial
}

// Delete removes the attribute stored under name.
func (mc *MachineContext) Delete(name string) {
	delete(mc.attributes, name)
}

// Attributes returns a copy of all attributes.
func (mc *MachineContext) Attributes() map[string]any {
	return maps.Clone(mc.attributes)
}

// Attribute returns the attribute stored under name converted to A. The
// second result is false if the attribute is missing or has another type.
func Attribute[A any](mc *MachineContext, name string) (A, bool) {
	v, ok := mc.attributes[name]
	if !ok {
		var zero A
		return zero, false
	}
	a, ok := v.(A)
	return a, ok
}
