package main

import (
	"log/slog"

	"github.com/atlekbai/hfsm"
	"github.com/atlekbai/hfsm/definition"
	"github.com/atlekbai/hfsm/internal/logging"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hfsm",
		Short:         "Work with hierarchical state machine definitions",
		Long:          `hfsm loads YAML state machine definitions with nested and parallel states, checks them, renders them as diagrams and drives them from the command line or over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newValidateCmd(),
		newGraphCmd(),
		newRunCmd(),
		newServeCmd(),
	)
	return root
}

func loggerFrom(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	return logging.NewWithWriter(cmd.ErrOrStderr(), logging.ParseLevel(level))
}

// load reads, validates and builds the definition at path.
func load(path string) (*definition.Definition, *hfsm.StateGraph[string, string], error) {
	def, err := definition.Load(path)
	if err != nil {
		return nil, nil, err
	}
	g, err := def.Build()
	if err != nil {
		return nil, nil, err
	}
	return def, g, nil
}
