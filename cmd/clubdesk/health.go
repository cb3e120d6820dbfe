package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check that the server and its database are reachable",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := consoleClient.Health(cmd.Context())
		status := "ok"
		if err != nil {
			status = err.Error()
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			if perr := printJSON(out, map[string]string{"status": status}); perr != nil {
				return perr
			}
		} else {
			fmt.Fprintf(out, "Health: %s\n", status)
		}
		if err != nil {
			return &reportedError{err: fmt.Errorf("unhealthy: %w", err)}
		}
		return nil
	},
}
