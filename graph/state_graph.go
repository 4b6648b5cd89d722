package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/atlekbai/hfsm"
)

// StateGraph is a symbolic representation of a state machine description,
// ready to be formatted by a Style.
type StateGraph struct {
	// InitialState is the initial state of the machine.
	InitialState *hfsm.StateInfo

	// States contains all states in the graph, indexed by state name.
	States map[string]*State

	Transitions []*Transition

	// Decisions are the choice nodes of dynamic transitions.
	Decisions []*Decision

	// decisions numbers choice nodes across a graph and all of its regions.
	decisions *int
}

// NewStateGraph builds a graph from a state machine description.
func NewStateGraph(machineInfo *hfsm.StateMachineInfo) *StateGraph {
	return newStateGraph(machineInfo, new(int))
}

func newStateGraph(machineInfo *hfsm.StateMachineInfo, decisions *int) *StateGraph {
	sg := &StateGraph{
		InitialState: machineInfo.InitialState,
		States:       make(map[string]*State),
		decisions:    decisions,
	}
	sg.addStates(machineInfo)
	sg.addTransitions(machineInfo)
	sg.processOnEntryFrom(machineInfo)
	return sg
}

func stateName(info *hfsm.StateInfo) string {
	return fmt.Sprintf("%v", info.UnderlyingState)
}

// addStates creates a node per state, then links substates to their
// superstates.
func (sg *StateGraph) addStates(machineInfo *hfsm.StateMachineInfo) {
	for _, info := range machineInfo.States {
		sg.States[stateName(info)] = sg.newState(info)
	}
	for _, info := range machineInfo.States {
		if info.Superstate == nil {
			continue
		}
		parent, ok := sg.States[stateName(info.Superstate)]
		if !ok {
			continue
		}
		sg.States[stateName(info)].SuperState = &SuperState{State: parent, SubStates: sg.getSubStates(parent)}
	}
}

func (sg *StateGraph) newState(info *hfsm.StateInfo) *State {
	name := stateName(info)
	state := &State{
		StateName:    name,
		NodeName:     name,
		EntryActions: entryActionDescriptions(info),
		ExitActions:  exitActionDescriptions(info),
		StateInfo:    info,
	}
	for _, regionInfo := range info.Regions {
		state.Regions = append(state.Regions, &Region{
			Name:  regionInfo.Name,
			Owner: state,
			Graph: newStateGraph(regionInfo.Info, sg.decisions),
		})
	}
	return state
}

// state returns the node for info, adding it if the description only
// mentions it as a destination.
func (sg *StateGraph) state(info *hfsm.StateInfo) *State {
	name := stateName(info)
	if s, ok := sg.States[name]; ok {
		return s
	}
	s := sg.newState(info)
	sg.States[name] = s
	return s
}

func (sg *StateGraph) addTransition(t *Transition) {
	sg.Transitions = append(sg.Transitions, t)
	t.SourceState.Leaving = append(t.SourceState.Leaving, t)
	if t.DestinationState != nil {
		t.DestinationState.Arriving = append(t.DestinationState.Arriving, t)
	}
}

func (sg *StateGraph) addTransitions(machineInfo *hfsm.StateMachineInfo) {
	for _, info := range machineInfo.States {
		from := sg.States[stateName(info)]

		for _, fix := range info.FixedTransitions {
			to := sg.state(fix.DestinationState)
			t := &Transition{
				Trigger:                 fix.GetTrigger(),
				SourceState:             from,
				DestinationState:        to,
				Guards:                  fix.GetGuardConditions(),
				ExecuteEntryExitActions: true,
			}
			if from == to {
				// A reentry runs the unfiltered entry actions again.
				for _, action := range info.EntryActions {
					if action.FromTrigger == nil {
						t.DestinationEntryActions = append(t.DestinationEntryActions, action)
					}
				}
			}
			sg.addTransition(t)
		}

		for _, dyn := range info.DynamicTransitions {
			*sg.decisions++
			decision := &Decision{
				NodeName: fmt.Sprintf("Decision%d", *sg.decisions),
				Method:   dyn.DestinationStateSelectorDescription,
			}
			sg.Decisions = append(sg.Decisions, decision)

			t := &Transition{
				Trigger:                 dyn.GetTrigger(),
				SourceState:             from,
				Decision:                decision,
				Guards:                  dyn.GetGuardConditions(),
				ExecuteEntryExitActions: true,
			}
			sg.addTransition(t)
			decision.Arriving = append(decision.Arriving, t)
		}

		for _, ignored := range info.IgnoredTriggers {
			sg.addTransition(&Transition{
				Trigger:          ignored.GetTrigger(),
				SourceState:      from,
				DestinationState: from,
				Guards:           ignored.GetGuardConditions(),
			})
		}
	}
}

// processOnEntryFrom attaches trigger-filtered entry actions to the arriving
// transitions fired by that trigger.
func (sg *StateGraph) processOnEntryFrom(machineInfo *hfsm.StateMachineInfo) {
	for _, info := range machineInfo.States {
		state := sg.States[stateName(info)]
		for _, action := range info.EntryActions {
			if action.FromTrigger == nil {
				continue
			}
			from := fmt.Sprintf("%v", action.FromTrigger)
			for _, t := range state.Arriving {
				if t.ExecuteEntryExitActions && fmt.Sprintf("%v", t.Trigger.UnderlyingTrigger) == from {
					t.DestinationEntryActions = append(t.DestinationEntryActions, action)
				}
			}
		}
	}
}

func entryActionDescriptions(info *hfsm.StateInfo) []string {
	var descriptions []string
	for _, action := range info.EntryActions {
		if action.FromTrigger == nil {
			descriptions = append(descriptions, action.Description())
		}
	}
	return descriptions
}

func exitActionDescriptions(info *hfsm.StateInfo) []string {
	var descriptions []string
	for _, action := range info.ExitActions {
		descriptions = append(descriptions, action.Description())
	}
	return descriptions
}

// ToGraph formats the graph with style.
func (sg *StateGraph) ToGraph(style Style) string {
	var sb strings.Builder
	sb.WriteString(style.GetPrefix())
	sb.WriteString(sg.body(style))
	sb.WriteString(style.GetInitialTransition(sg.InitialState))
	return sb.String()
}

// body formats the states, decisions and transitions without the prefix or
// the initial transition. Regions reuse it for their nested sections.
func (sg *StateGraph) body(style Style) string {
	var sb strings.Builder
	names := sg.getSortedStateNames()

	for _, name := range names {
		state := sg.States[name]
		if state.IsCluster() {
			sb.WriteString(style.FormatOneCluster(&SuperState{State: state, SubStates: sg.getSubStates(state)}))
		}
	}

	for _, name := range names {
		state := sg.States[name]
		if state.IsCluster() || state.SuperState != nil {
			continue
		}
		sb.WriteString(style.FormatOneState(state))
	}

	for _, dec := range sg.Decisions {
		sb.WriteString(style.FormatOneDecisionNode(dec.NodeName, dec.Method.Description()))
	}

	for _, line := range style.FormatAllTransitions(sg.getSortedTransitions(), sg.Decisions) {
		sb.WriteString("\n")
		sb.WriteString(line)
	}
	return sb.String()
}

func (sg *StateGraph) getSortedStateNames() []string {
	names := make([]string, 0, len(sg.States))
	for name := range sg.States {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// getSortedTransitions orders transitions by source, destination and trigger.
func (sg *StateGraph) getSortedTransitions() []*Transition {
	sorted := make([]*Transition, len(sg.Transitions))
	copy(sorted, sg.Transitions)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := sorted[i], sorted[j]
		if a, b := ti.SourceState.StateName, tj.SourceState.StateName; a != b {
			return a < b
		}
		if a, b := ti.destinationName(), tj.destinationName(); a != b {
			return a < b
		}
		return fmt.Sprintf("%v", ti.Trigger.UnderlyingTrigger) < fmt.Sprintf("%v", tj.Trigger.UnderlyingTrigger)
	})
	return sorted
}

func (t *Transition) destinationName() string {
	switch {
	case t.DestinationState != nil:
		return t.DestinationState.StateName
	case t.Decision != nil:
		return t.Decision.NodeName
	default:
		return ""
	}
}

func (sg *StateGraph) getSubStates(state *State) []*State {
	var substates []*State
	if state.StateInfo == nil {
		return nil
	}
	for _, subInfo := range state.StateInfo.Substates {
		if sub, ok := sg.States[stateName(subInfo)]; ok {
			substates = append(substates, sub)
		}
	}
	return substates
}
