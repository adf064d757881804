// Package timeutil provides shared timestamp formatting helpers.
package timeutil

import "time"

// Format renders t as RFC3339Nano in UTC, or "" for the zero time.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Ptr returns a pointer to the formatted timestamp, or nil for
// the zero time.
func Ptr(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := Format(t)
	return &s
}

// UTCISOSeconds renders t in UTC RFC3339 with second precision.
// Used for metadata stamps inside derived session files.
func UTCISOSeconds(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
