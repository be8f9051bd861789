package utils

import (
	"fmt"
	"time"
)

const (
	kilobyte = 1024
	megabyte = 1024 * kilobyte
)

// FormatBytes renders a byte count with coarse units: B, KB, MB
func FormatBytes(n int64) string {
	switch {
	case n < kilobyte:
		return fmt.Sprintf("%d B", n)
	case n < megabyte:
		return fmt.Sprintf("%.1f KB", float64(n)/kilobyte)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/megabyte)
	}
}

// FormatDuration renders a duration as seconds under a minute, minutes under
// an hour, otherwise hours and minutes. Negative durations render as zero.
func FormatDuration(d time.Duration) string {
	seconds := int64(d / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm", seconds/60)
	default:
		return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
	}
}
