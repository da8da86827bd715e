package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ffkit/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded jobs",
	}
	cmd.AddCommand(newHistoryListCommand(ctx))
	cmd.AddCommand(newHistoryRunsCommand(ctx))
	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryStatsCommand(ctx))
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	cmd.AddCommand(newHistoryRepairCommand(ctx))
	return cmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var runID string
	var status string
	var input string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			filter := history.Filter{RunID: strings.TrimSpace(runID), Limit: limit}
			if strings.TrimSpace(input) != "" {
				abs, err := filepath.Abs(input)
				if err != nil {
					return err
				}
				filter.Input = abs
			}
			if status != "" {
				parsed, err := parseStatus(status)
				if err != nil {
					return err
				}
				filter.Status = parsed
			}
			jobs, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, jobs)
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs recorded")
				return nil
			}
			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					strconv.FormatInt(job.ID, 10),
					string(job.Kind),
					string(job.Status),
					job.InputPath,
					formatJobSizes(job),
					formatJobDuration(job),
					humanize.Time(job.StartedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Kind", "Status", "Input", "Size", "Took", "Started"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Only jobs from this run")
	cmd.Flags().StringVar(&input, "input", "", "Only jobs for this input file")
	cmd.Flags().StringVar(&status, "status", "", "Only jobs with this status (running, succeeded, failed, skipped)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum jobs to show; 0 shows all")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newHistoryRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Summarize recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			runs, err := store.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.RunID,
					strconv.Itoa(run.Jobs),
					strconv.Itoa(run.Succeeded),
					strconv.Itoa(run.Failed),
					humanize.Bytes(uint64(run.InputBytes)) + " => " + humanize.Bytes(uint64(run.OutputBytes)),
					run.Duration.Round(time.Second).String(),
					humanize.Time(run.StartedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Run", "Jobs", "OK", "Failed", "Size", "Encode time", "Started"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum runs to show")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			job, err := store.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if job == nil {
				return fmt.Errorf("job %d not found", id)
			}
			if jsonOutput {
				return writeJSON(cmd, job)
			}
			renderJob(cmd.OutOrStdout(), job)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newHistoryStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count jobs by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			statuses := []history.Status{history.StatusRunning, history.StatusSucceeded, history.StatusFailed, history.StatusSkipped}
			rows := make([][]string, 0, len(statuses))
			total := 0
			for _, status := range statuses {
				rows = append(rows, []string{string(status), strconv.Itoa(stats[status])})
				total += stats[status]
			}
			fmt.Fprintln(cmd.OutOrStdout(), tableSpec{
				Headers: []string{"Status", "Jobs"},
				Rows:    rows,
				Footer:  []string{"Total", strconv.Itoa(total)},
				Aligns:  []columnAlignment{alignLeft, alignRight},
			}.render())
			return nil
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished jobs older than --days",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return errors.New("--days must be at least 1")
			}
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			removed, err := store.Prune(cmd.Context(), time.Now().AddDate(0, 0, -days))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d jobs\n", removed)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 90, "Age threshold in days")
	return cmd
}

func newHistoryRepairCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Mark jobs left running by a killed process as failed",
		Long: "Mark jobs left running by a killed process as failed. Only run this while\n" +
			"no batch is active; live jobs would be marked too.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			updated, err := store.ResetRunning(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d jobs as failed\n", updated)
			return nil
		},
	}
}

func parseStatus(value string) (history.Status, error) {
	status := history.Status(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case history.StatusRunning, history.StatusSucceeded, history.StatusFailed, history.StatusSkipped:
		return status, nil
	default:
		return "", fmt.Errorf("unknown status %q", value)
	}
}

func formatJobSizes(job *history.Job) string {
	if job.OutputBytes <= 0 {
		return humanize.Bytes(uint64(max(job.InputBytes, 0)))
	}
	return fmt.Sprintf("%s => %s", humanize.Bytes(uint64(max(job.InputBytes, 0))), humanize.Bytes(uint64(job.OutputBytes)))
}

func formatJobDuration(job *history.Job) string {
	if job.FinishedAt == nil {
		return "-"
	}
	return job.Duration.Round(time.Second).String()
}

func renderJob(out io.Writer, job *history.Job) {
	rows := [][]string{
		{"ID", strconv.FormatInt(job.ID, 10)},
		{"Run", job.RunID},
		{"Kind", string(job.Kind)},
		{"Status", string(job.Status)},
		{"Profile", job.Profile},
		{"Input", job.InputPath},
		{"Output", job.OutputPath},
		{"Size", formatJobSizes(job)},
		{"Started", job.StartedAt.Local().Format(time.DateTime)},
		{"Took", formatJobDuration(job)},
	}
	if ratio := job.Ratio(); ratio > 0 {
		rows = append(rows, []string{"Ratio", strconv.FormatFloat(ratio, 'f', 3, 64)})
	}
	if job.ErrorMessage != "" {
		rows = append(rows, []string{"Error", fmt.Sprintf("[%s] %s", job.ErrorKind, job.ErrorMessage)})
	}
	if len(job.Args) > 0 {
		rows = append(rows, []string{"Args", shellQuote(job.Args)})
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
}
