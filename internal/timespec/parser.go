// Package timespec resolves user-supplied time bounds into the Unix
// millisecond timestamps carried by lattice entities.
package timespec

import (
	"fmt"
	"time"
)

// Parse converts one time bound into Unix milliseconds. Two forms are
// accepted: a Go duration ("1h", "90m", "2h45m") measured back from now,
// and an absolute RFC3339 timestamp ("2026-08-29T13:00:00Z").
func Parse(spec string) (int64, error) {
	if spec == "" {
		return 0, fmt.Errorf("empty time specification")
	}

	if d, err := time.ParseDuration(spec); err == nil {
		return time.Now().Add(-d).UnixMilli(), nil
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}

	return 0, fmt.Errorf("invalid time specification: %s (use duration like '1h30m' or RFC3339 like '2026-08-29T13:00:00Z')", spec)
}

// Bounds resolves a --since/--until pair into a window over entity
// timestamps. A zero value means that side of the window is unbounded; an
// empty spec leaves its side at zero.
func Bounds(since, until string) (int64, int64, error) {
	var sinceMS, untilMS int64

	if since != "" {
		ms, err := Parse(since)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --since: %w", err)
		}
		sinceMS = ms
	}

	if until != "" {
		ms, err := Parse(until)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --until: %w", err)
		}
		untilMS = ms
	}

	if sinceMS > 0 && untilMS > 0 && sinceMS >= untilMS {
		return 0, 0, fmt.Errorf("--since (%s) does not precede --until (%s)", since, until)
	}

	return sinceMS, untilMS, nil
}
