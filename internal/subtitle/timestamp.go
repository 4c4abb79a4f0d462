package subtitle

import "fmt"

// FormatTimestamp converts a non-negative offset in seconds into the SubRip
// timestamp form HH:MM:SS,mmm. Hours are zero-padded to at least two digits
// and widen beyond 99 for very long media. Fractional milliseconds are
// truncated rather than rounded so a cue can never spill into the next second.
// Negative input is a caller bug; behavior for it is undefined.
func FormatTimestamp(seconds float64) string {
	totalMS := int64(seconds * 1000.0)

	ms := totalMS % 1000
	totalSec := totalMS / 1000
	hours := totalSec / 3600
	minutes := (totalSec % 3600) / 60
	secs := totalSec % 60

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, ms)
}

// formatVTTTimestamp is the WebVTT variant, identical except for the
// millisecond separator.
func formatVTTTimestamp(seconds float64) string {
	totalMS := int64(seconds * 1000.0)

	ms := totalMS % 1000
	totalSec := totalMS / 1000
	hours := totalSec / 3600
	minutes := (totalSec % 3600) / 60
	secs := totalSec % 60

	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, ms)
}
