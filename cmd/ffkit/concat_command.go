package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ffkit/internal/batch"
	"ffkit/internal/encoding"
	"ffkit/internal/history"
)

func newConcatCommand(ctx *commandContext) *cobra.Command {
	var output string
	var dir string
	var groups string
	var deleteSources bool

	cmd := &cobra.Command{
		Use:   "concat -o <output> <input>... | --dir <dir> | --groups <parent>",
		Short: "Join files without re-encoding",
		Long: "Join files with ffmpeg's concat demuxer. With --dir every media file in the\n" +
			"directory is joined in name order; --groups does that for each subdirectory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if !cmd.Flags().Changed("delete-sources") {
				deleteSources = cfg.Batch.DeleteSources
			}
			opts := encoding.ConcatDirOptions{OutputDir: output, DeleteSources: deleteSources}
			runner := ctx.runner()
			out := cmd.OutOrStdout()

			switch {
			case groups != "":
				outputs, err := runner.ConcatGroups(cmd.Context(), groups, opts)
				for _, joined := range outputs {
					fmt.Fprintf(out, "Joined %s\n", joined)
				}
				return err
			case dir != "":
				joined, err := runner.ConcatDirectory(cmd.Context(), dir, opts)
				if err != nil {
					return err
				}
				if joined == "" {
					fmt.Fprintf(out, "No media files in %s\n", dir)
					return nil
				}
				fmt.Fprintf(out, "Joined %s\n", joined)
				return nil
			}

			if len(args) < 2 {
				return errors.New("concat needs at least two inputs, or --dir/--groups")
			}
			if output == "" {
				return errors.New("--output is required when joining explicit inputs")
			}
			outcome, err := ctx.runOne(cmd, batch.Job{
				Kind:   history.KindConcat,
				Input:  args[0],
				Output: output,
				Run: func(jobCtx context.Context) (encoding.Result, error) {
					return runner.Concat(jobCtx, args, output)
				},
			})
			if err != nil {
				return err
			}
			printOutcome(cmd, fmt.Sprintf("Joined %d files:", len(args)), outcome)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, or output directory with --dir/--groups")
	cmd.Flags().StringVar(&dir, "dir", "", "Join every media file in this directory")
	cmd.Flags().StringVar(&groups, "groups", "", "Join each subdirectory of this directory")
	cmd.Flags().BoolVar(&deleteSources, "delete-sources", false, "Remove inputs once the joined file exists (defaults to batch.delete_sources)")
	cmd.MarkFlagsMutuallyExclusive("dir", "groups")
	return cmd
}
