package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"ffkit/internal/timecode"
)

func newTimecodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "timecode",
		Short:       "Timecode arithmetic in HH:MM:SS.mmm",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "simplify <timecode>",
		Short: "Canonicalize a timecode (01:85:20 -> 02:25:20.000)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := timecode.Simplify(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "seconds <timecode>",
		Short: "Convert a timecode to seconds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := timecode.ToSeconds(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(value, 'f', 3, 64))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "from-seconds <seconds>",
		Short: "Convert seconds to a timecode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[0], 64)
			if err != nil || value < 0 {
				return fmt.Errorf("invalid seconds %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), timecode.FromSeconds(value))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add <a> <b>",
		Short: "Add two timecodes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := timecode.Add(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "sub <from> <amount>",
		Short: "Subtract amount from a timecode, clamping at zero",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, clamped, err := timecode.Subtract(args[0], args[1])
			if err != nil {
				return err
			}
			if clamped {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s is longer than %s; clamped to zero\n", args[1], args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	})
	return cmd
}
