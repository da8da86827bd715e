package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ffkit/internal/convert"
	"ffkit/internal/media"
)

func newArgsCommand(ctx *commandContext) *cobra.Command {
	var flags planFlags
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "args <file>",
		Short: "Print the ffmpeg arguments a conversion would run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			desc, err := media.Probe(cmd.Context(), ctx.prober(), args[0])
			if err != nil {
				return err
			}
			plan, err := flags.build(cfg, desc, flags.defaultOutput(args[0], ""), ctx.loggerValue())
			if err != nil {
				return err
			}
			compiled, err := convert.Compile(plan, flags.window())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, compiled)
			}
			describePlan(cmd, plan)
			fmt.Fprintln(cmd.OutOrStdout(), shellQuote(append([]string{cfg.FFmpegBinary()}, compiled...)))
			return nil
		},
	}

	flags.register(cmd, true)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the argument list as JSON")
	return cmd
}
