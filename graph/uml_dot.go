package graph

import (
	"fmt"
	"strings"

	"github.com/atlekbai/hfsm"
)

// UmlDotGraphStyle generates DOT graphs in basic UML style. Regions are drawn
// as nested clusters inside the cluster of their parallel state.
type UmlDotGraphStyle struct {
	// nodePrefix keeps node identifiers of a region unique in the document.
	nodePrefix string
}

// NewUmlDotGraphStyle creates a new UML DOT graph style.
func NewUmlDotGraphStyle() *UmlDotGraphStyle {
	return &UmlDotGraphStyle{}
}

// GetPrefix returns the text that starts a new DOT graph.
func (s *UmlDotGraphStyle) GetPrefix() string {
	return "digraph {\n" +
		"compound=true;\n" +
		"node [shape=Mrecord]\n" +
		"rankdir=\"LR\"\n"
}

func (s *UmlDotGraphStyle) node(name string) string {
	return EscapeLabel(s.nodePrefix + name)
}

// FormatOneCluster formats a superstate or parallel state as a cluster.
func (s *UmlDotGraphStyle) FormatOneCluster(superState *SuperState) string {
	var label strings.Builder
	label.WriteString(EscapeLabel(superState.StateName))
	if len(superState.EntryActions) > 0 || len(superState.ExitActions) > 0 {
		label.WriteString("\\n----------")
		for _, act := range superState.EntryActions {
			label.WriteString("\\nentry / ")
			label.WriteString(EscapeLabel(act))
		}
		for _, act := range superState.ExitActions {
			label.WriteString("\\nexit / ")
			label.WriteString(EscapeLabel(act))
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\nsubgraph \"cluster%s\"\n", s.node(superState.NodeName))
	sb.WriteString("\t{\n")
	fmt.Fprintf(&sb, "\tlabel = \"%s\"\n", label.String())
	for _, subState := range superState.SubStates {
		sb.WriteString(s.FormatOneState(subState))
	}
	for _, region := range superState.Regions {
		sb.WriteString(s.formatRegion(region))
	}
	sb.WriteString("}\n")
	return sb.String()
}

func (s *UmlDotGraphStyle) formatRegion(region *Region) string {
	rs := &UmlDotGraphStyle{nodePrefix: s.nodePrefix + region.NodePrefix() + "_"}
	initNode := rs.node("init")

	var sb strings.Builder
	fmt.Fprintf(&sb, "\nsubgraph \"cluster%s\"\n", s.node(region.NodePrefix()))
	sb.WriteString("\t{\n")
	fmt.Fprintf(&sb, "\tlabel = \"%s\"\n", EscapeLabel(region.Name))
	sb.WriteString(region.Graph.body(rs))
	if initial := region.Graph.InitialState; initial != nil {
		fmt.Fprintf(&sb, "\n \"%s\" [label=\"\", shape=point];", initNode)
		fmt.Fprintf(&sb, "\n \"%s\" -> \"%s\"[style = \"solid\"]", initNode, rs.node(fmt.Sprintf("%v", initial.UnderlyingState)))
	}
	sb.WriteString("\n}\n")
	return sb.String()
}

// FormatOneState formats a single state.
func (s *UmlDotGraphStyle) FormatOneState(state *State) string {
	node := s.node(state.NodeName)
	name := EscapeLabel(state.StateName)

	if len(state.EntryActions) == 0 && len(state.ExitActions) == 0 {
		return fmt.Sprintf("\"%s\" [label=\"%s\"];\n", node, name)
	}

	actions := make([]string, 0, len(state.EntryActions)+len(state.ExitActions))
	for _, act := range state.EntryActions {
		actions = append(actions, "entry / "+EscapeLabel(act))
	}
	for _, act := range state.ExitActions {
		actions = append(actions, "exit / "+EscapeLabel(act))
	}
	return fmt.Sprintf("\"%s\" [label=\"%s|%s\"];\n", node, name, strings.Join(actions, "\\n"))
}

// FormatOneDecisionNode formats a decision node.
func (s *UmlDotGraphStyle) FormatOneDecisionNode(nodeName, label string) string {
	return fmt.Sprintf("\"%s\" [shape = \"diamond\", label = \"%s\"];\n", s.node(nodeName), EscapeLabel(label))
}

// FormatAllTransitions formats all transitions.
func (s *UmlDotGraphStyle) FormatAllTransitions(transitions []*Transition, _ []*Decision) []string {
	return FormatTransitions(s, transitions)
}

// FormatOneTransition formats a single transition.
func (s *UmlDotGraphStyle) FormatOneTransition(
	sourceNodeName, trigger string,
	actions []string,
	destinationNodeName string,
	guards []string,
) string {
	return fmt.Sprintf("\"%s\" -> \"%s\" [style=\"solid\", label=\"%s\"];",
		s.node(sourceNodeName), s.node(destinationNodeName), EscapeLabel(transitionLabel(trigger, actions, guards)))
}

// GetInitialTransition returns the text for the initial state transition.
func (s *UmlDotGraphStyle) GetInitialTransition(initialState *hfsm.StateInfo) string {
	if initialState == nil {
		return "\n}"
	}
	return fmt.Sprintf("\n init [label=\"\", shape=point];\n init -> \"%s\"[style = \"solid\"]\n}",
		s.node(fmt.Sprintf("%v", initialState.UnderlyingState)))
}

// EscapeLabel escapes backslashes and quotes in a label.
func EscapeLabel(label string) string {
	label = strings.ReplaceAll(label, "\\", "\\\\")
	label = strings.ReplaceAll(label, "\"", "\\\"")
	return label
}

// UmlDotGraph generates a UML DOT graph from state machine info.
func UmlDotGraph(machineInfo *hfsm.StateMachineInfo) string {
	graph := NewStateGraph(machineInfo)
	return graph.ToGraph(NewUmlDotGraphStyle())
}
