package main

import (
	"fmt"

	"github.com/atlekbai/hfsm/definition"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a definition for dangling references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := definition.Load(args[0])
			if err != nil {
				return err
			}
			if err := def.Validate(); err != nil {
				return fmt.Errorf("validation failed:\n%w", err)
			}
			if _, err := def.Build(); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			out := newPrinter(cmd.OutOrStdout())
			out.ok(fmt.Sprintf("%s is valid (%d states)", args[0], len(def.States)))
			return nil
		},
	}
}
