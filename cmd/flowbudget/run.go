package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/flowbudget/flow"
	"github.com/hupe1980/flowbudget/logging"
	"github.com/hupe1980/flowbudget/usage"
	usagesqlite "github.com/hupe1980/flowbudget/usage/sqlite"
)

func newRunCmd() *cobra.Command {
	var (
		flowDir   string
		input     string
		format    string
		dbPath    string
		verbosity int
	)

	cmd := &cobra.Command{
		Use:   "run <flow>",
		Short: "Execute a flow against an input and print the result with usage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFor(verbosity)
			runner := flow.NewRunner(flowDir, func(o *flow.RunnerOptions) {
				o.Logger = logger
			})

			tracker := usage.NewTracker()
			res, fu, err := runner.Run(cmd.Context(), args[0], input, tracker)
			if err != nil {
				return err
			}

			fmt.Println(res.String())
			if res.Truncated {
				fmt.Fprintln(os.Stderr, "note: result truncated at the orchestrator's step limit")
			}

			fmt.Fprintf(os.Stderr, "\nflow %s: %d steps, %d input + %d output tokens, cost %s\n",
				fu.FlowName, fu.Len(), fu.TotalInputTokens(), fu.TotalOutputTokens(), fu.TotalCost().StringFixed(6))

			switch format {
			case "json":
				if err := usage.WriteJSON(os.Stderr, fu.Records()); err != nil {
					return err
				}
			case "csv":
				if err := usage.WriteCSV(os.Stderr, fu.Records()); err != nil {
					return err
				}
			case "":
			default:
				return fmt.Errorf("unknown usage format %q (use json or csv)", format)
			}

			if dbPath != "" {
				store, err := usagesqlite.Open(dbPath)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				if err := store.SaveFlowUsage(cmd.Context(), fu); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flowDir, "dir", "d", ".", "directory containing flow and agent documents")
	cmd.Flags().StringVarP(&input, "input", "i", "", "input text for the flow")
	cmd.Flags().StringVar(&format, "usage-format", "", "print per-step usage as json or csv")
	cmd.Flags().StringVar(&dbPath, "db", "", "also persist flow usage to this SQLite database")
	cmd.Flags().IntVarP(&verbosity, "verbosity", "v", 0, "0 = quiet, 1 = info, 2 = debug")

	return cmd
}

func loggerFor(verbosity int) logging.Logger {
	switch {
	case verbosity >= 2:
		return logging.NewSlogLoggerTo(os.Stderr, logging.LogLevelDebug, "text")
	case verbosity == 1:
		return logging.NewSlogLoggerTo(os.Stderr, logging.LogLevelInfo, "text")
	default:
		return nil
	}
}
