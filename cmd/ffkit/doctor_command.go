package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ffkit/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check binaries and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			results := preflight.RunAll(cmd.Context(), cfg)

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				if !r.Passed {
					status = "FAIL"
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			title := "defaults (no config file)"
			if ctx.configExists {
				title = ctx.configPath
			}
			fmt.Fprintln(cmd.OutOrStdout(), tableSpec{
				Title:   title,
				Headers: []string{"Check", "Status", "Detail"},
				Rows:    rows,
			}.render())

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d checks failed", len(failed))
			}
			return nil
		},
	}
}
