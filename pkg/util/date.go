package util

import (
	"strconv"
	"strings"
	"time"
)

// Epoch values below this are taken as unix seconds, at or above as milliseconds.
const millisThreshold = 100_000_000_000

// EpochMillis normalizes a unix timestamp in seconds or milliseconds to milliseconds.
func EpochMillis(v int64) int64 {
	if v > 0 && v < millisThreshold {
		return v * 1000
	}
	return v
}

// ParseMillis accepts RFC3339, RFC3339Nano, and unix seconds or milliseconds.
// Returns (ms, true) if any worked.
func ParseMillis(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UnixMilli(), true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return EpochMillis(ts), true
	}
	return 0, false
}

// AlignMillis truncates ms to the start of its bucket of length d.
func AlignMillis(ms int64, d time.Duration) int64 {
	step := d.Milliseconds()
	if step <= 0 {
		return ms
	}
	return ms - ms%step
}
