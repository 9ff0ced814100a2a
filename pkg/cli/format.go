package cli

import (
	"fmt"
	"time"
)

// FormatDuration formats a configured span of milliseconds, e.g. a
// suppression window: "20ms", "1.5s", "2m5.5s".
func FormatDuration(ms uint64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}

// FormatOffset formats a stream timestamp at millisecond precision as
// "mm:ss.mmm", growing an hour field past one hour. Offsets line up in
// columns, which durations do not.
func FormatOffset(ms uint64) string {
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	frac := ms % 1000
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, s, frac)
	}
	return fmt.Sprintf("%02d:%02d.%03d", m, s, frac)
}

// FormatBytes formats the size of a history allocation.
func FormatBytes(bytes int64) string {
	const (
		KiB = 1 << 10
		MiB = 1 << 20
	)
	switch {
	case bytes >= MiB:
		return fmt.Sprintf("%.2f MiB", float64(bytes)/MiB)
	case bytes >= KiB:
		return fmt.Sprintf("%.2f KiB", float64(bytes)/KiB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
