package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ffkit/internal/batch"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var writeLog bool
	var terse bool

	cmd := &cobra.Command{
		Use:   "analyze <root>",
		Short: "Summarize which subdirectories still need conversion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workflow := batch.New(ctx.configValue(), batch.Options{
				Prober: ctx.prober(),
				Logger: ctx.loggerValue(),
			})
			analysis, err := workflow.Analyze(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, analysis)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderAnalysis(analysis))
			if len(analysis.Invalid) > 0 {
				fmt.Fprintf(out, "%d files could not be probed:\n", len(analysis.Invalid))
				for _, path := range analysis.Invalid {
					fmt.Fprintf(out, "  %s\n", path)
				}
			}

			if writeLog {
				now := time.Now()
				target := filepath.Join(args[0], batch.LogFileName(now))
				f, err := os.Create(target)
				if err != nil {
					return fmt.Errorf("create analysis log: %w", err)
				}
				if err := analysis.WriteLog(f, now, terse); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("close analysis log: %w", err)
				}
				fmt.Fprintf(out, "Wrote %s\n", target)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&writeLog, "write-log", false, "Also write a dated conversion log into the root directory")
	cmd.Flags().BoolVar(&terse, "terse", false, "Omit per-codec counts from the written log")
	return cmd
}

func renderAnalysis(analysis batch.Analysis) string {
	rows := make([][]string, 0, len(analysis.Directories))
	var files int
	for _, dir := range analysis.Directories {
		files += dir.Convertible
		rows = append(rows, []string{
			filepath.Base(dir.Dir),
			strconv.Itoa(dir.Convertible),
			humanize.Bytes(uint64(dir.ConvertibleBytes)),
			strconv.Itoa(dir.Invalid),
			humanize.Bytes(uint64(dir.OtherBytes)),
			formatCodecs(dir.Codecs),
		})
	}
	return tableSpec{
		Title:   fmt.Sprintf("%s (target %s)", analysis.Root, analysis.TargetCodec),
		Headers: []string{"Directory", "Files", "Size", "Invalid", "Other", "Codecs"},
		Rows:    rows,
		Footer:  []string{"Total", strconv.Itoa(files), humanize.Bytes(uint64(analysis.TotalBytes())), "", "", ""},
		Aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
	}.render()
}

func formatCodecs(codecs map[string]int) string {
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	slices.Sort(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s:%d", name, codecs[name]))
	}
	return strings.Join(parts, " ")
}
