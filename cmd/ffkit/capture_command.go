package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ffkit/internal/batch"
	"ffkit/internal/encoding"
	"ffkit/internal/history"
)

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "capture <url> -o <file>",
		Short: "Save a network stream to a .ts file",
		Long: "Save a network stream (for example an HLS playlist) to a transport-stream\n" +
			"file. Recording stops when the stream ends or on Ctrl-C.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			runner := ctx.runner()
			target, err := encoding.CapturePath(output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Recording to %s (Ctrl-C to stop)\n", target)
			finish := withProgress(cmd, runner)
			outcome, err := ctx.runOne(cmd, batch.Job{
				Kind:   history.KindCapture,
				Input:  args[0],
				Output: target,
				Run: func(jobCtx context.Context) (encoding.Result, error) {
					return runner.Capture(jobCtx, args[0], target, cfg.Encoding.Verbosity)
				},
			})
			finish()
			if err != nil {
				return err
			}
			printOutcome(cmd, "Captured", outcome)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "capture.ts", "Output file; the extension is forced to .ts")
	return cmd
}
