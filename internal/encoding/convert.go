package encoding

import (
	"context"
	"time"

	"ffkit/internal/convert"
	"ffkit/internal/timecode"
)

// Result describes one finished ffmpeg invocation.
type Result struct {
	Output  string
	Args    []string
	Elapsed time.Duration
}

// Convert compiles plan without a clip window and runs it.
func (r *Runner) Convert(ctx context.Context, plan *convert.Plan) (Result, error) {
	return r.Clip(ctx, plan, nil)
}

// Clip compiles plan with window and runs it. A nil window converts the
// whole file.
func (r *Runner) Clip(ctx context.Context, plan *convert.Plan, window *convert.Window) (Result, error) {
	args, err := convert.Compile(plan, window)
	if err != nil {
		return Result{}, err
	}
	runner := *r
	if runner.Duration <= 0 {
		runner.Duration = clipDuration(plan, window)
	}
	elapsed, err := runner.Run(ctx, args)
	return Result{Output: plan.Output(), Args: args, Elapsed: elapsed}, err
}

func clipDuration(plan *convert.Plan, window *convert.Window) float64 {
	if window == nil {
		return plan.Descriptor().Duration()
	}
	start, err := timecode.ToSeconds(window.Start)
	if err != nil {
		return 0
	}
	end, err := timecode.ToSeconds(window.End)
	if err != nil {
		return 0
	}
	return end - start
}
