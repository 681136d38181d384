package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	usagesqlite "github.com/hupe1980/flowbudget/usage/sqlite"
)

func newUsageCmd() *cobra.Command {
	var (
		dbPath   string
		flowName string
	)

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show per-agent usage aggregates from a persisted usage database",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := usagesqlite.Open(dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			summaries, err := store.Summary(cmd.Context(), flowName)
			if err != nil {
				return err
			}
			fmt.Print(formatSummaryTable(summaries))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "flowbudget.db", "path to the SQLite usage database")
	cmd.Flags().StringVar(&flowName, "flow", "", "filter by flow name")
	return cmd
}

func formatSummaryTable(summaries []usagesqlite.AgentSummary) string {
	if len(summaries) == 0 {
		return "No usage data found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-25s %8s %12s %12s %12s\n",
		"AGENT", "CALLS", "INPUT", "OUTPUT", "TOTAL")
	b.WriteString(strings.Repeat("-", 73) + "\n")

	var total int
	for _, s := range summaries {
		fmt.Fprintf(&b, "%-25s %8d %12d %12d %12d\n",
			s.AgentName, s.Calls, s.InputTokens, s.OutputTokens, s.TotalTokens)
		total += s.TotalTokens
	}
	b.WriteString(strings.Repeat("-", 73) + "\n")
	fmt.Fprintf(&b, "%60s %12d\n", "TOTAL:", total)
	return b.String()
}
