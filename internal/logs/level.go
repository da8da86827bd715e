package logs

import (
	"encoding/json"
	"log/slog"
	"strings"

	"ffkit/internal/logging"
)

// MatchLevel reports whether a log line is at or above minimum. Lines that do
// not look like log records (stack traces, ffmpeg output) always match.
func MatchLevel(line string, minimum slog.Level) bool {
	label, ok := lineLevel(line)
	if !ok {
		return true
	}
	return logging.ParseLevel(label) >= minimum
}

func lineLevel(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "{") {
		var record struct {
			Level string `json:"level"`
		}
		if err := json.Unmarshal([]byte(trimmed), &record); err != nil || record.Level == "" {
			return "", false
		}
		return record.Level, true
	}
	// console: "2006-01-02 15:04:05 LEVEL ..."
	fields := strings.Fields(stripANSI(trimmed))
	if len(fields) < 3 {
		return "", false
	}
	switch fields[2] {
	case "DEBUG", "INFO", "WARN", "ERROR":
		return fields[2], true
	}
	return "", false
}

func stripANSI(s string) string {
	if !strings.Contains(s, "\x1b[") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == 0x1b && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && s[j] != 'm' {
				j++
			}
			i = j
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
