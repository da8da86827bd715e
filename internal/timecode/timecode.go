package timecode

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ffkit/internal/services"
)

// Zero is the canonical form of an empty duration.
const Zero = "00:00:00.000"

// component admits plain decimals only; strconv alone would also take signs,
// exponents, hex floats, underscores, and Inf.
var component = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// Parse splits a timecode into its hour, minute, and second components
// without normalizing them. Seconds may carry a fractional part.
func Parse(text string) (hours, minutes, seconds float64, err error) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) != 3 {
		return 0, 0, 0, formatError(text, fmt.Sprintf("expected 3 colon-separated components, got %d", len(parts)), nil)
	}
	values := make([]float64, 3)
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if !component.MatchString(part) {
			return 0, 0, 0, formatError(text, fmt.Sprintf("component %d must be a non-negative decimal number", i+1), nil)
		}
		value, perr := strconv.ParseFloat(part, 64)
		if perr != nil {
			return 0, 0, 0, formatError(text, fmt.Sprintf("component %d is out of range", i+1), perr)
		}
		values[i] = value
	}
	return values[0], values[1], values[2], nil
}

// ToSeconds returns the total number of seconds represented by text.
func ToSeconds(text string) (float64, error) {
	h, m, s, err := Parse(text)
	if err != nil {
		return 0, err
	}
	return s + 60*(m+60*h), nil
}

// FromSeconds renders seconds in canonical form, rounded to the millisecond.
// Negative input renders as Zero.
func FromSeconds(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) {
		return Zero
	}
	totalMillis := int64(math.Round(seconds * 1000))
	hours := totalMillis / 3_600_000
	totalMillis -= hours * 3_600_000
	minutes := totalMillis / 60_000
	totalMillis -= minutes * 60_000
	secs := totalMillis / 1000
	millis := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, millis)
}

// Join builds a canonical timecode from possibly unnormalized components.
func Join(hours, minutes, seconds float64) string {
	return FromSeconds(seconds + 60*(minutes+60*hours))
}

// Simplify returns the canonical form of text.
func Simplify(text string) (string, error) {
	seconds, err := ToSeconds(text)
	if err != nil {
		return "", err
	}
	return FromSeconds(seconds), nil
}

// Add returns a + b.
func Add(a, b string) (string, error) {
	left, err := ToSeconds(a)
	if err != nil {
		return "", err
	}
	right, err := ToSeconds(b)
	if err != nil {
		return "", err
	}
	return FromSeconds(left + right), nil
}

// Subtract returns from - amount. A negative result is clamped to Zero and
// reported through clamped; that is a warning condition, not an error.
func Subtract(from, amount string) (result string, clamped bool, err error) {
	base, err := ToSeconds(from)
	if err != nil {
		return "", false, err
	}
	delta, err := ToSeconds(amount)
	if err != nil {
		return "", false, err
	}
	diff := base - delta
	if diff < 0 {
		return Zero, true, nil
	}
	return FromSeconds(diff), false, nil
}

// FromDuration renders a time.Duration as a canonical timecode.
func FromDuration(d time.Duration) string {
	return FromSeconds(d.Seconds())
}

// ToDuration parses text into a time.Duration with millisecond precision.
func ToDuration(text string) (time.Duration, error) {
	seconds, err := ToSeconds(text)
	if err != nil {
		return 0, err
	}
	return time.Duration(math.Round(seconds*1000)) * time.Millisecond, nil
}

func formatError(text, message string, err error) error {
	return services.Wrap(services.ErrFormat, fmt.Sprintf("timecode %q", text), "", message, err)
}
