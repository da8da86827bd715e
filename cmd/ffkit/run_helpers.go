package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ffkit/internal/batch"
	"ffkit/internal/encoding"
	"ffkit/internal/logging"
)

// runOne runs a single job through the batch queue so it lands in history
// with its own run ID. Interrupts reach ffmpeg directly.
func (c *commandContext) runOne(cmd *cobra.Command, job batch.Job) (batch.Outcome, error) {
	logger := c.loggerValue()
	store, err := c.openHistory()
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "job not recorded in ffkit history"),
		)
		store = nil
	}
	queue := batch.NewQueue(batch.QueueOptions{
		Limit:         1,
		Logger:        logger,
		History:       store,
		Interruptible: true,
	})
	queue.Add(job)
	report, runErr := queue.Run(cmd.Context())
	if len(report.Outcomes) == 0 {
		return batch.Outcome{}, runErr
	}
	outcome := report.Outcomes[0]
	return outcome, outcome.Err
}

// withProgress attaches a single-line progress display to runner when the
// command's stderr is a terminal. The returned func ends the line.
func withProgress(cmd *cobra.Command, runner *encoding.Runner) func() {
	w := cmd.ErrOrStderr()
	if !isTerminal(w) {
		return func() {}
	}
	printer := &progressLine{w: w}
	runner.Progress = printer.update
	return printer.done
}

type progressLine struct {
	mu      sync.Mutex
	w       io.Writer
	last    int
	printed bool
}

func (p *progressLine) update(progress encoding.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg := progress.Message()
	if progress.SizeKB > 0 {
		msg += " " + humanize.IBytes(uint64(progress.SizeKB)*1024)
	}
	pad := ""
	if n := p.last - len(msg); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprintf(p.w, "\r%s%s", msg, pad)
	p.last = len(msg)
	p.printed = true
}

func (p *progressLine) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.printed {
		fmt.Fprintln(p.w)
	}
}

func printOutcome(cmd *cobra.Command, verb string, outcome batch.Outcome) {
	out := cmd.OutOrStdout()
	output := outcome.Result.Output
	if output == "" {
		output = outcome.Job.Output
	}
	fmt.Fprintf(out, "%s %s -> %s in %s\n", verb, outcome.Job.Input, output, outcome.Elapsed.Round(100*time.Millisecond))
	if outcome.InputBytes > 0 && outcome.OutputBytes > 0 {
		fmt.Fprintf(out, "Size: %s => %s (%.1f%%)\n",
			humanize.Bytes(uint64(outcome.InputBytes)),
			humanize.Bytes(uint64(outcome.OutputBytes)),
			100*float64(outcome.OutputBytes)/float64(outcome.InputBytes),
		)
	}
}

// shellQuote renders args for pasting into a POSIX shell.
func shellQuote(args []string) string {
	quoted := make([]string, 0, len(args))
	for _, arg := range args {
		if arg != "" && strings.IndexFunc(arg, unsafeShellRune) < 0 {
			quoted = append(quoted, arg)
			continue
		}
		quoted = append(quoted, "'"+strings.ReplaceAll(arg, "'", `'\''`)+"'")
	}
	return strings.Join(quoted, " ")
}

func unsafeShellRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case strings.ContainsRune("-_./:=,+%@", r):
		return false
	default:
		return true
	}
}
