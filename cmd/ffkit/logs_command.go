package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"ffkit/internal/logging"
	"ffkit/internal/logs"
	"ffkit/internal/services"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var runID string
	var latest bool
	var lines int
	var follow bool
	var level string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the ffkit log or a batch run log",
		Long: "Print the tail of ffkit.log, or of batch-<run>.log with --run or --latest.\n" +
			"With --follow, keep printing new lines until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := strings.TrimSpace(ctx.configValue().Paths.LogDir)
			if dir == "" {
				return services.Wrap(services.ErrValidation, "logs", "resolve", "paths.log_dir is not configured", nil)
			}

			path := logs.MainLogPath(dir)
			switch {
			case strings.TrimSpace(runID) != "":
				path = logs.RunLogPath(dir, runID)
			case latest:
				found, ok, err := logs.LatestRunLog(dir)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "No batch run logs found")
					return nil
				}
				path = found
			}

			minimum := slog.LevelDebug
			if strings.TrimSpace(level) != "" {
				minimum = logging.ParseLevel(level)
			}
			out := cmd.OutOrStdout()
			emit := func(line string) {
				if logs.MatchLevel(line, minimum) {
					fmt.Fprintln(out, line)
				}
			}

			chunk, err := logs.Tail(path, lines)
			if err != nil {
				return err
			}
			for _, line := range chunk.Lines {
				emit(line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, chunk.Offset, logs.DefaultPollInterval, emit)
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Show the log for this batch run ID")
	cmd.Flags().BoolVar(&latest, "latest", false, "Show the most recent batch run log")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&level, "level", "", "Only show records at or above this level")
	cmd.MarkFlagsMutuallyExclusive("run", "latest")
	return cmd
}
