package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"ffkit/internal/batch"
	"ffkit/internal/preflight"
	"ffkit/internal/services"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var profile string
	var jobs int
	var tree bool
	var deleteOriginals bool

	cmd := &cobra.Command{
		Use:   "batch <dir>...",
		Short: "Convert every directory's media to the target codec",
		Long: "Convert the media in each directory to batch.target_codec. Originals are\n" +
			"moved to batch.originals_dir and the converted .mkv takes their place.\n" +
			"Reruns skip files whose output already exists. With --tree, each argument's\n" +
			"immediate subdirectories are converted instead.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgVal := *ctx.configValue()
			cfg := &cfgVal
			if cmd.Flags().Changed("jobs") {
				cfg.Batch.MaxConcurrent = jobs
			}
			if cmd.Flags().Changed("delete-originals") {
				cfg.Batch.DeleteOriginals = deleteOriginals
			}
			logger := ctx.loggerValue()

			if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
				details := make([]string, 0, len(failed))
				for _, check := range failed {
					details = append(details, check.Name+": "+check.Detail)
				}
				return services.Wrap(services.ErrValidation, "batch", "preflight", strings.Join(details, "; "), nil)
			}

			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			var progress io.Writer
			if isTerminal(cmd.ErrOrStderr()) {
				progress = cmd.ErrOrStderr()
			}
			workflow := batch.New(cfg, batch.Options{
				Prober:   ctx.prober(),
				Runner:   ctx.runner(),
				History:  store,
				Logger:   logger,
				Progress: progress,
			})
			opts := batch.ConvertOptions{Profile: profile}

			var report batch.Report
			if tree {
				for _, root := range args {
					part, err := workflow.ConvertTree(cmd.Context(), root, opts)
					report = mergeReports(report, part)
					if err != nil {
						printReport(cmd.OutOrStdout(), report)
						return err
					}
				}
			} else {
				report, err = workflow.ConvertDirectories(cmd.Context(), args, opts)
				if err != nil && len(report.Outcomes) == 0 {
					return err
				}
			}
			printReport(cmd.OutOrStdout(), report)
			if err != nil {
				return err
			}
			if failures := report.Failures(); len(failures) > 0 {
				return fmt.Errorf("%d of %d jobs failed (see ffkit history --run %s)", len(failures), len(report.Outcomes), report.RunID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&profile, "profile", "p", "", "Base profile (defaults to encoding.default_profile)")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Concurrent conversions (defaults to batch.max_concurrent)")
	cmd.Flags().BoolVar(&tree, "tree", false, "Convert the immediate subdirectories of each argument")
	cmd.Flags().BoolVar(&deleteOriginals, "delete-originals", false, "Delete each original after a successful conversion")
	return cmd
}

func mergeReports(into, part batch.Report) batch.Report {
	if into.RunID == "" {
		into.RunID = part.RunID
	} else if part.RunID != "" && part.RunID != into.RunID {
		into.RunID += "," + part.RunID
	}
	into.Elapsed += part.Elapsed
	into.Outcomes = append(into.Outcomes, part.Outcomes...)
	into.InputBytes += part.InputBytes
	into.OutputBytes += part.OutputBytes
	into.Invalid = append(into.Invalid, part.Invalid...)
	return into
}

func printReport(out io.Writer, report batch.Report) {
	if len(report.Outcomes) == 0 {
		fmt.Fprintln(out, "Nothing to convert")
		for _, path := range report.Invalid {
			fmt.Fprintf(out, "invalid: %s\n", path)
		}
		return
	}
	fmt.Fprintln(out, report.Summary())
	if report.RunID != "" {
		fmt.Fprintf(out, "Run: %s\n", report.RunID)
	}
}

var errNothingToDo = errors.New("nothing to do")
