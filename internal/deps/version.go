package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 5 * time.Second

// Inspect resolves the requirement and, when the binary is present, records
// the version string it reports for -version.
func Inspect(ctx context.Context, req Requirement) Status {
	status := lookup(req)
	if !status.Available {
		return status
	}
	version, err := Version(ctx, status.Path)
	if err != nil {
		status.Detail = err.Error()
		return status
	}
	status.Version = version
	return status
}

// Version runs "<binary> -version" and returns the token after "version" on
// the first line, e.g. "6.1.1" for ffmpeg and ffprobe builds.
func Version(ctx context.Context, binary string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, binary, "-version").Output() //nolint:gosec
	if err != nil {
		return "", fmt.Errorf("%s -version: %w", binary, err)
	}
	return parseVersion(out)
}

func parseVersion(out []byte) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if !scanner.Scan() {
		return "", fmt.Errorf("empty version output")
	}
	fields := strings.Fields(scanner.Text())
	for i, field := range fields {
		if field == "version" && i+1 < len(fields) {
			return fields[i+1], nil
		}
	}
	return "", fmt.Errorf("unrecognized version line %q", scanner.Text())
}
