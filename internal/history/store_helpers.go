package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const jobColumns = "id, run_id, kind, input_path, output_path, status, profile, args_json, error_kind, error_message, input_bytes, output_bytes, duration_ms, started_at, finished_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           int64
		runID        sql.NullString
		kind         string
		inputPath    string
		outputPath   sql.NullString
		status       string
		profile      sql.NullString
		argsJSON     sql.NullString
		errorKind    sql.NullString
		errorMessage sql.NullString
		inputBytes   int64
		outputBytes  int64
		durationMS   int64
		startedRaw   string
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&runID,
		&kind,
		&inputPath,
		&outputPath,
		&status,
		&profile,
		&argsJSON,
		&errorKind,
		&errorMessage,
		&inputBytes,
		&outputBytes,
		&durationMS,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		RunID:        runID.String,
		Kind:         Kind(kind),
		InputPath:    inputPath,
		OutputPath:   outputPath.String,
		Status:       Status(status),
		Profile:      profile.String,
		ErrorKind:    errorKind.String,
		ErrorMessage: errorMessage.String,
		InputBytes:   inputBytes,
		OutputBytes:  outputBytes,
		Duration:     time.Duration(durationMS) * time.Millisecond,
	}
	if argsJSON.Valid && argsJSON.String != "" {
		if err := json.Unmarshal([]byte(argsJSON.String), &job.Args); err != nil {
			return nil, err
		}
	}
	if ts, err := parseTimeString(startedRaw); err == nil {
		job.StartedAt = ts
	}
	if finishedRaw.Valid {
		if ts, err := parseTimeString(finishedRaw.String); err == nil {
			job.FinishedAt = &ts
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
