package history

import "time"

// Status is the lifecycle state of a recorded job.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Kind names the operation a job performed.
type Kind string

const (
	KindConvert Kind = "convert"
	KindClip    Kind = "clip"
	KindConcat  Kind = "concat"
	KindCapture Kind = "capture"
)

// Job is one ffmpeg invocation as persisted in the history database.
type Job struct {
	ID           int64
	RunID        string
	Kind         Kind
	InputPath    string
	OutputPath   string
	Status       Status
	Profile      string
	Args         []string
	ErrorKind    string
	ErrorMessage string
	InputBytes   int64
	OutputBytes  int64
	Duration     time.Duration
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// Ratio reports output size over input size, or 0 when either is unknown.
func (j Job) Ratio() float64 {
	if j.InputBytes <= 0 || j.OutputBytes <= 0 {
		return 0
	}
	return float64(j.OutputBytes) / float64(j.InputBytes)
}

// Outcome is what Finish records for a started job.
type Outcome struct {
	Status     Status
	OutputPath string
	// Args replaces the recorded arguments when non-empty; most jobs only
	// know their final arguments once the plan is compiled.
	Args         []string
	ErrorKind    string
	ErrorMessage string
	OutputBytes  int64
	Duration     time.Duration
}

// Filter narrows List results. Zero values match everything; Limit <= 0
// returns every match.
type Filter struct {
	RunID  string
	Status Status
	// Input matches the absolute input path exactly.
	Input string
	Limit int
}

// RunSummary aggregates the jobs of one batch run.
type RunSummary struct {
	RunID       string
	Jobs        int
	Succeeded   int
	Failed      int
	InputBytes  int64
	OutputBytes int64
	Duration    time.Duration
	StartedAt   time.Time
}
