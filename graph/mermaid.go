package graph

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/atlekbai/hfsm"
)

// MermaidGraphDirection specifies the direction of the Mermaid graph.
type MermaidGraphDirection int

const (
	// TopToBottom flows from top to bottom.
	TopToBottom MermaidGraphDirection = iota
	// BottomToTop flows from bottom to top.
	BottomToTop
	// LeftToRight flows from left to right.
	LeftToRight
	// RightToLeft flows from right to left.
	RightToLeft
)

// MermaidGraphStyle generates Mermaid state diagrams. Parallel states become
// composite states with one "--" separated section per region.
type MermaidGraphStyle struct {
	graph     *StateGraph
	direction *MermaidGraphDirection

	// stateMap maps sanitized names to states.
	stateMap            map[string]*State
	stateMapInitialized bool
}

// NewMermaidGraphStyle creates a new Mermaid graph style.
func NewMermaidGraphStyle(graph *StateGraph, direction *MermaidGraphDirection) *MermaidGraphStyle {
	return &MermaidGraphStyle{
		graph:     graph,
		direction: direction,
		stateMap:  make(map[string]*State),
	}
}

// GetPrefix returns the text that starts a new Mermaid graph.
func (s *MermaidGraphStyle) GetPrefix() string {
	s.buildSanitizedNamedStateMap()

	var sb strings.Builder
	sb.WriteString("stateDiagram-v2")
	if s.direction != nil {
		fmt.Fprintf(&sb, "\n\tdirection %s", getDirectionCode(*s.direction))
	}
	sb.WriteString(s.aliases())
	return sb.String()
}

// aliases declares the display names of states whose names were sanitized.
func (s *MermaidGraphStyle) aliases() string {
	names := make([]string, 0, len(s.stateMap))
	for sanitized := range s.stateMap {
		names = append(names, sanitized)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, sanitized := range names {
		if state := s.stateMap[sanitized]; sanitized != state.StateName {
			fmt.Fprintf(&sb, "\n\t%s : %s", sanitized, state.StateName)
		}
	}
	return sb.String()
}

// FormatOneCluster formats a composite state. Substates form the first
// section; each region follows in its own section.
func (s *MermaidGraphStyle) FormatOneCluster(superState *SuperState) string {
	var sections []string
	if len(superState.SubStates) > 0 {
		names := make([]string, len(superState.SubStates))
		for i, sub := range superState.SubStates {
			names[i] = s.getSanitizedStateName(sub.StateName)
		}
		sections = append(sections, strings.Join(names, "\n"))
	}
	for _, region := range superState.Regions {
		sections = append(sections, s.formatRegion(region))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n\tstate %s {\n", s.getSanitizedStateName(superState.StateName))
	for i, section := range sections {
		if i > 0 {
			sb.WriteString("\t\t--\n")
		}
		sb.WriteString(indent(strings.Trim(section, "\n"), "\t\t"))
		sb.WriteString("\n")
	}
	sb.WriteString("\t}")
	return sb.String()
}

func (s *MermaidGraphStyle) formatRegion(region *Region) string {
	rs := NewMermaidGraphStyle(region.Graph, nil)
	rs.buildSanitizedNamedStateMap()
	return rs.aliases() + region.Graph.body(rs) + rs.GetInitialTransition(region.Graph.InitialState)
}

// FormatOneState returns nothing; Mermaid declares states implicitly.
func (s *MermaidGraphStyle) FormatOneState(_ *State) string {
	return ""
}

// FormatOneDecisionNode formats a decision node.
func (s *MermaidGraphStyle) FormatOneDecisionNode(nodeName, _ string) string {
	return fmt.Sprintf("\n\tstate %s <<choice>>", nodeName)
}

// FormatAllTransitions formats all transitions.
func (s *MermaidGraphStyle) FormatAllTransitions(transitions []*Transition, _ []*Decision) []string {
	return FormatTransitions(s, transitions)
}

// FormatOneTransition formats a single transition.
func (s *MermaidGraphStyle) FormatOneTransition(
	sourceNodeName, trigger string,
	actions []string,
	destinationNodeName string,
	guards []string,
) string {
	return fmt.Sprintf("\t%s --> %s : %s",
		s.getSanitizedStateName(sourceNodeName),
		s.getSanitizedStateName(destinationNodeName),
		transitionLabel(trigger, actions, guards))
}

// GetInitialTransition returns the text for the initial state transition.
func (s *MermaidGraphStyle) GetInitialTransition(initialState *hfsm.StateInfo) string {
	if initialState == nil {
		return ""
	}
	return fmt.Sprintf("\n[*] --> %s", s.getSanitizedStateName(fmt.Sprintf("%v", initialState.UnderlyingState)))
}

// buildSanitizedNamedStateMap assigns every state a unique sanitized name.
func (s *MermaidGraphStyle) buildSanitizedNamedStateMap() {
	if s.stateMapInitialized {
		return
	}

	uniqueAliases := make(map[string]bool)
	for _, name := range s.graph.getSortedStateNames() {
		state := s.graph.States[name]
		sanitizedName := sanitizeStateName(state.StateName)

		if sanitizedName != state.StateName {
			tempName := sanitizedName
			for count := 1; uniqueAliases[tempName] || s.graph.States[tempName] != nil; count++ {
				tempName = fmt.Sprintf("%s_%d", sanitizedName, count)
			}
			sanitizedName = tempName
			uniqueAliases[sanitizedName] = true
		}

		s.stateMap[sanitizedName] = state
	}

	s.stateMapInitialized = true
}

func (s *MermaidGraphStyle) getSanitizedStateName(stateName string) string {
	for sanitizedName, state := range s.stateMap {
		if state.StateName == stateName {
			return sanitizedName
		}
	}
	return stateName
}

// sanitizeStateName removes characters that would cause invalid Mermaid graphs.
func sanitizeStateName(name string) string {
	var result strings.Builder
	for _, c := range name {
		if !unicode.IsSpace(c) && c != ':' && c != '-' {
			result.WriteRune(c)
		}
	}
	return result.String()
}

func getDirectionCode(direction MermaidGraphDirection) string {
	switch direction {
	case BottomToTop:
		return "BT"
	case LeftToRight:
		return "LR"
	case RightToLeft:
		return "RL"
	default:
		return "TB"
	}
}

// MermaidGraph generates a Mermaid graph from state machine info.
func MermaidGraph(machineInfo *hfsm.StateMachineInfo, direction *MermaidGraphDirection) string {
	graph := NewStateGraph(machineInfo)
	return graph.ToGraph(NewMermaidGraphStyle(graph, direction))
}
