package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/flowbudget/flow"
)

func newValidateCmd() *cobra.Command {
	var flowDir string

	cmd := &cobra.Command{
		Use:   "validate <flow>",
		Short: "Validate a flow document and report every problem at once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := flow.NewRunner(flowDir)
			def, err := runner.Load(args[0])

			var ve *flow.ValidationError
			if errors.As(err, &ve) {
				fmt.Printf("flow %q has %d problem(s):\n", ve.Flow, len(ve.Problems))
				for _, p := range ve.Problems {
					fmt.Printf("  - %s\n", p)
				}
				return fmt.Errorf("validation failed")
			}
			if err != nil {
				return err
			}

			fmt.Printf("flow %q is valid: %d sub-agent(s), orchestrator %q\n",
				def.Name, len(def.SubAgents), def.Orchestrator.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flowDir, "dir", "d", ".", "directory containing flow and agent documents")
	return cmd
}
