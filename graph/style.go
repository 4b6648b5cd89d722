package graph

import (
	"fmt"
	"strings"

	"github.com/atlekbai/hfsm"
)

// Style formats the parts of a StateGraph.
type Style interface {
	// GetPrefix returns the text that starts a new graph.
	GetPrefix() string

	// GetInitialTransition returns the text for the initial state transition.
	GetInitialTransition(initialState *hfsm.StateInfo) string

	// FormatOneState formats a single state.
	FormatOneState(state *State) string

	// FormatOneCluster formats a superstate or a parallel state with its
	// substates and regions.
	FormatOneCluster(superState *SuperState) string

	// FormatOneDecisionNode formats a decision node.
	FormatOneDecisionNode(nodeName, label string) string

	// FormatAllTransitions formats all transitions.
	FormatAllTransitions(transitions []*Transition, decisions []*Decision) []string

	// FormatOneTransition formats a single transition.
	FormatOneTransition(
		sourceNodeName, trigger string,
		actions []string,
		destinationNodeName string,
		guards []string,
	) string
}

// FormatTransitions formats every transition with style.
func FormatTransitions(style Style, transitions []*Transition) []string {
	var lines []string
	for _, transit := range transitions {
		if line := formatSingleTransition(style, transit); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func formatSingleTransition(style Style, transit *Transition) string {
	var destination string
	switch {
	case transit.DestinationState != nil:
		destination = transit.DestinationState.NodeName
	case transit.Decision != nil:
		destination = transit.Decision.NodeName
	default:
		return ""
	}

	var actions []string
	if transit.ExecuteEntryExitActions {
		for _, act := range transit.DestinationEntryActions {
			actions = append(actions, act.Description())
		}
	}

	return style.FormatOneTransition(
		transit.SourceState.NodeName,
		fmt.Sprintf("%v", transit.Trigger.UnderlyingTrigger),
		actions,
		destination,
		collectGuards(transit),
	)
}

func collectGuards(transit *Transition) []string {
	var guards []string
	for _, g := range transit.Guards {
		guards = append(guards, g.Description())
	}
	return guards
}

// transitionLabel renders "trigger / actions [guard]...".
func transitionLabel(trigger string, actions, guards []string) string {
	var sb strings.Builder
	sb.WriteString(trigger)
	if len(actions) > 0 {
		sb.WriteString(" / ")
		sb.WriteString(strings.Join(actions, ", "))
	}
	for _, guard := range guards {
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString("[")
		sb.WriteString(guard)
		sb.WriteString("]")
	}
	return sb.String()
}

// indent prefixes every non-empty line of text.
func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
