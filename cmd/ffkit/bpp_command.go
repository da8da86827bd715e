package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ffkit/internal/batch"
)

func newBPPCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "bpp <root>",
		Short: "Write a bits-per-pixel CSV for files not yet in the target codec",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workflow := batch.New(ctx.configValue(), batch.Options{
				Prober: ctx.prober(),
				Logger: ctx.loggerValue(),
			})

			var w io.Writer = cmd.OutOrStdout()
			var file *os.File
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				file = f
				w = f
			}
			rows, err := workflow.BitsPerPixelReport(cmd.Context(), args[0], w)
			if file != nil {
				if closeErr := file.Close(); err == nil && closeErr != nil {
					err = fmt.Errorf("close %s: %w", output, closeErr)
				}
			}
			if err != nil {
				return err
			}
			if file != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rows to %s\n", rows, output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "CSV destination (defaults to stdout)")
	return cmd
}
