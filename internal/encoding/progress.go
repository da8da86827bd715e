package encoding

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"ffkit/internal/timecode"
)

const stderrTailLines = 8

var (
	progressTimePattern  = regexp.MustCompile(`time=\s*(\d+:\d{2}:\d{2}(?:\.\d+)?)`)
	progressSpeedPattern = regexp.MustCompile(`speed=\s*([0-9.]+)x`)
	progressSizePattern  = regexp.MustCompile(`size=\s*(\d+)(?:kB|KiB)`)
)

// Progress is one ffmpeg status line.
type Progress struct {
	// Position is the output timestamp reached, in seconds.
	Position float64
	// Percent of the expected duration, or -1 when unknown.
	Percent float64
	// Speed is the encode speed relative to realtime; 0 when unreported.
	Speed float64
	// SizeKB is the output size written so far.
	SizeKB int64
	// ETA is the estimated remaining time; 0 when unknown.
	ETA time.Duration
}

// Message renders the update for logs and terminals.
func (p Progress) Message() string {
	base := "Encoding " + timecode.FromSeconds(p.Position)
	if p.Percent >= 0 {
		base = fmt.Sprintf("Encoding %.1f%%", p.Percent)
	}
	extras := make([]string, 0, 2)
	if formatted := formatETA(p.ETA); formatted != "" {
		extras = append(extras, "ETA "+formatted)
	}
	if p.Speed > 0 {
		extras = append(extras, fmt.Sprintf("@ %.1fx", p.Speed))
	}
	if len(extras) == 0 {
		return base
	}
	return fmt.Sprintf("%s (%s)", base, strings.Join(extras, ", "))
}

func parseProgress(line string, duration float64) (Progress, bool) {
	match := progressTimePattern.FindStringSubmatch(line)
	if match == nil {
		return Progress{}, false
	}
	position, err := timecode.ToSeconds(match[1])
	if err != nil {
		return Progress{}, false
	}
	update := Progress{Position: position, Percent: -1}
	if m := progressSpeedPattern.FindStringSubmatch(line); m != nil {
		update.Speed, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := progressSizePattern.FindStringSubmatch(line); m != nil {
		update.SizeKB, _ = strconv.ParseInt(m[1], 10, 64)
	}
	if duration > 0 {
		update.Percent = math.Min(100, position/duration*100)
		if update.Speed > 0 && position < duration {
			remaining := (duration - position) / update.Speed
			update.ETA = time.Duration(remaining * float64(time.Second))
		}
	}
	return update, true
}

func formatETA(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	d = d.Round(time.Second)
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	parts := make([]string, 0, 3)
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || (hours == 0 && minutes == 0) {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, "")
}

// progressSampler limits progress logging to every step percent.
type progressSampler struct {
	step float64
	last float64
}

func newProgressSampler(step float64) *progressSampler {
	return &progressSampler{step: step, last: -1}
}

func (s *progressSampler) shouldLog(percent float64) bool {
	if percent < 0 {
		return false
	}
	if s.last < 0 || percent-s.last >= s.step || (percent >= 100 && s.last < 100) {
		s.last = percent
		return true
	}
	return false
}

// lineWriter splits ffmpeg's stderr on \r and \n and hands each line to
// onLine. Lines onLine does not consume are kept (up to limit) for error
// reports.
type lineWriter struct {
	mu      sync.Mutex
	partial []byte
	tail    []string
	limit   int
	onLine  func(string) bool
}

func newLineWriter(limit int, onLine func(string) bool) *lineWriter {
	return &lineWriter{limit: limit, onLine: onLine}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, b := range p {
		if b == '\n' || b == '\r' {
			w.emit()
			continue
		}
		w.partial = append(w.partial, b)
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.emit()
}

func (w *lineWriter) emit() {
	line := strings.TrimSpace(string(w.partial))
	w.partial = w.partial[:0]
	if line == "" {
		return
	}
	if w.onLine != nil && w.onLine(line) {
		return
	}
	w.tail = append(w.tail, line)
	if len(w.tail) > w.limit {
		w.tail = w.tail[len(w.tail)-w.limit:]
	}
}

// Tail returns the retained lines joined with " | ".
func (w *lineWriter) Tail() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.Join(w.tail, " | ")
}
