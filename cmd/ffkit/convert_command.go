package main

import (
	"context"

	"github.com/spf13/cobra"

	"ffkit/internal/batch"
	"ffkit/internal/encoding"
	"ffkit/internal/history"
	"ffkit/internal/media"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var flags planFlags

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert one file using a profile or explicit intents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlanJob(cmd, ctx, &flags, args[0], history.KindConvert, "", "Converted")
		},
	}
	flags.register(cmd, false)
	return cmd
}

func newClipCommand(ctx *commandContext) *cobra.Command {
	var flags planFlags

	cmd := &cobra.Command{
		Use:   "clip <file> --start HH:MM:SS --end HH:MM:SS",
		Short: "Cut a time window out of a file",
		Long: "Cut a time window out of a file. Streams are copied unless a profile or\n" +
			"explicit encoder is given.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("profile") && flags.videoEncoder == "" && flags.audioEncoder == "" {
				flags.copyAll = true
			}
			return runPlanJob(cmd, ctx, &flags, args[0], history.KindClip, "_clip", "Clipped")
		},
	}
	flags.register(cmd, true)
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

// runPlanJob probes input, builds the plan from flags and runs it as a
// single recorded job.
func runPlanJob(cmd *cobra.Command, ctx *commandContext, flags *planFlags, input string, kind history.Kind, suffix, verb string) error {
	cfg := ctx.configValue()
	logger := ctx.loggerValue()
	desc, err := media.Probe(cmd.Context(), ctx.prober(), input)
	if err != nil {
		return err
	}
	plan, err := flags.build(cfg, desc, flags.defaultOutput(input, suffix), logger)
	if err != nil {
		return err
	}
	describePlan(cmd, plan)

	runner := ctx.runner()
	finish := withProgress(cmd, runner)
	window := flags.window()
	outcome, err := ctx.runOne(cmd, batch.Job{
		Kind:    kind,
		Input:   input,
		Output:  plan.Output(),
		Profile: flags.profile,
		Run: func(jobCtx context.Context) (encoding.Result, error) {
			return runner.Clip(jobCtx, plan, window)
		},
	})
	finish()
	if err != nil {
		return err
	}
	printOutcome(cmd, verb, outcome)
	return nil
}
