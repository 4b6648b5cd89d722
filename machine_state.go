package hfsm

import (
	"fmt"
	"strings"
)

// MachineState is a read-only snapshot of an active configuration. Each entry
// nests its active substate and, for parallel states, one entry per region.
type MachineState[S comparable] struct {
	State     S                 `json:"state"`
	SubStates []MachineState[S] `json:"subStates,omitempty"`
}

// IsInState reports whether state appears anywhere in the snapshot.
func (ms MachineState[S]) IsInState(state S) bool {
	if ms.State == state {
		return true
	}
	for _, sub := range ms.SubStates {
		if sub.IsInState(state) {
			return true
		}
	}
	return false
}

// Leaves returns the innermost active states.
func (ms MachineState[S]) Leaves() []S {
	if len(ms.SubStates) == 0 {
		return []S{ms.State}
	}
	var leaves []S
	for _, sub := range ms.SubStates {
		leaves = append(leaves, sub.Leaves()...)
	}
	return leaves
}

// String renders the snapshot as state[sub1, sub2[...]].
func (ms MachineState[S]) String() string {
	var sb strings.Builder
	ms.write(&sb)
	return sb.String()
}

func (ms MachineState[S]) write(sb *strings.Builder) {
	fmt.Fprintf(sb, "%v", ms.State)
	if len(ms.SubStates) == 0 {
		return
	}
	sb.WriteString("[")
	for i, sub := range ms.SubStates {
		if i > 0 {
			sb.WriteString(", ")
		}
		sub.write(sb)
	}
	sb.WriteString("]")
}
