package auth

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var expiryUnits = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseExpiry parses unit suffixed expressions such as "15m", "7d", "1w" or
// "1d12h". A bare integer is read as seconds. Anything else falls back to
// time.ParseDuration so "1.5h" and "500ms" keep working.
func ParseExpiry(expr string) (time.Duration, error) {
	expr = strings.TrimSpace(strings.ToLower(expr))
	if expr == "" {
		return 0, fmt.Errorf("empty duration expression")
	}

	if secs, err := strconv.ParseInt(expr, 10, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("negative duration %q", expr)
		}
		return time.Duration(secs) * time.Second, nil
	}

	var total time.Duration
	rest := expr
	for rest != "" {
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		if i == 0 || i == len(rest) {
			return parseStdDuration(expr)
		}
		unit, ok := expiryUnits[rest[i]]
		if !ok || (i+1 < len(rest) && (rest[i+1] < '0' || rest[i+1] > '9')) {
			return parseStdDuration(expr)
		}
		n, err := strconv.ParseInt(rest[:i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", expr, err)
		}
		total += time.Duration(n) * unit
		rest = rest[i+1:]
	}

	return total, nil
}

func parseStdDuration(expr string) (time.Duration, error) {
	d, err := time.ParseDuration(expr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", expr, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", expr)
	}
	return d, nil
}

// ExpirySeconds is ParseExpiry expressed in whole seconds
func ExpirySeconds(expr string) (int64, error) {
	d, err := ParseExpiry(expr)
	if err != nil {
		return 0, err
	}
	return int64(d / time.Second), nil
}

// IsWithinThresholdPeriod checks if the given time is within the threshold
func IsWithinThresholdPeriod(t time.Time, pattern string) (bool, error) {
	duration, err := ParseExpiry(pattern)
	if err != nil {
		return false, err
	}

	threshold := time.Now().Add(-duration)
	return t.After(threshold), nil
}
