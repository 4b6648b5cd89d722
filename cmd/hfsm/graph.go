package main

import (
	"fmt"

	"github.com/atlekbai/hfsm/graph"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <file>",
		Short: "Render a definition as a Mermaid or DOT diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, g, err := load(args[0])
			if err != nil {
				return err
			}
			info := g.GetInfo(def.Initial)

			format, _ := cmd.Flags().GetString("format")
			switch format {
			case "mermaid":
				fmt.Fprintln(cmd.OutOrStdout(), graph.MermaidGraph(info, nil))
			case "dot":
				fmt.Fprintln(cmd.OutOrStdout(), graph.UmlDotGraph(info))
			default:
				return fmt.Errorf("unknown format %q, want mermaid or dot", format)
			}
			return nil
		},
	}
	cmd.Flags().StringP("format", "f", "mermaid", "Diagram format (mermaid or dot)")
	return cmd
}
