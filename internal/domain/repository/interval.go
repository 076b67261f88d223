package repository

import (
	"strings"
	"time"
)

// Interval represents candle resolution buckets.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval8h  Interval = "8h"
	Interval1d  Interval = "1d"
)

var intervalDurations = map[Interval]time.Duration{
	Interval1m:  time.Minute,
	Interval5m:  5 * time.Minute,
	Interval15m: 15 * time.Minute,
	Interval1h:  time.Hour,
	Interval4h:  4 * time.Hour,
	Interval8h:  8 * time.Hour,
	Interval1d:  24 * time.Hour,
}

// IsValidInterval returns true if iv is a supported interval.
func IsValidInterval(iv Interval) bool {
	_, ok := intervalDurations[iv]
	return ok
}

// DefaultInterval returns the default interval.
func DefaultInterval() Interval { return Interval5m }

// NormalizeInterval converts raw string to a valid interval (or default).
func NormalizeInterval(s string) Interval {
	iv := Interval(strings.ToLower(strings.TrimSpace(s)))
	if iv == "" || !IsValidInterval(iv) {
		return DefaultInterval()
	}
	return iv
}

// Duration returns the bucket length, or zero for unknown intervals.
func (iv Interval) Duration() time.Duration { return intervalDurations[iv] }

// Intraday reports whether the interval is finer than one day.
func (iv Interval) Intraday() bool {
	d := iv.Duration()
	return d > 0 && d < 24*time.Hour
}

// ParseIntervals parses a list of interval strings, skipping unknown values.
func ParseIntervals(raw []string) []Interval {
	out := make([]Interval, 0, len(raw))
	for _, s := range raw {
		iv := Interval(strings.ToLower(strings.TrimSpace(s)))
		if IsValidInterval(iv) {
			out = append(out, iv)
		}
	}
	return out
}
