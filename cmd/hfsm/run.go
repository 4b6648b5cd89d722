package main

import (
	"fmt"

	"github.com/atlekbai/hfsm"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file> [trigger...]",
		Short: "Fire triggers at a new machine and print each configuration",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, g, err := load(args[0])
			if err != nil {
				return err
			}
			sm, err := hfsm.NewStateMachine(g, def.Initial, hfsm.WithLogger(loggerFrom(cmd)))
			if err != nil {
				return err
			}

			keepGoing, _ := cmd.Flags().GetBool("keep-going")
			out := newPrinter(cmd.OutOrStdout())
			ctx := cmd.Context()

			snapshot := func(label string) error {
				state, err := sm.GetStateMachineState(ctx)
				if err != nil {
					return err
				}
				out.step(label, state.String())
				return nil
			}

			if err := snapshot("(initial)"); err != nil {
				return err
			}
			var failed int
			for _, trigger := range args[1:] {
				if err := sm.FireCtx(ctx, trigger); err != nil {
					out.fail(fmt.Sprintf("%s: %v", trigger, err))
					if !keepGoing {
						return fmt.Errorf("fire %s: %w", trigger, err)
					}
					failed++
					continue
				}
				if err := snapshot(trigger); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d triggers failed", failed, len(args)-1)
			}
			return nil
		},
	}
	cmd.Flags().BoolP("keep-going", "k", false, "Continue after a trigger fails")
	return cmd
}
