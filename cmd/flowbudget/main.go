package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "flowbudget",
		Short:   "flowbudget — budget-aware multi-agent flow runner",
		Version: version,
	}

	root.AddCommand(
		newRunCmd(),
		newValidateCmd(),
		newUsageCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
