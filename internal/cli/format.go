package cli

import (
	"fmt"
	"time"
)

// FormatDurationShort formats a duration in a short format (M:SS or H:MM:SS).
func FormatDurationShort(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// FormatExpiry renders a token lifetime as days remaining plus the
// absolute expiry date, e.g. "59 days (expires 23 October 2026)".
func FormatExpiry(expiresAt time.Time) string {
	days := int(time.Until(expiresAt).Hours() / 24)
	return fmt.Sprintf("%d days (expires %s)", days, expiresAt.Format("2 January 2006"))
}

// FormatQuotaBar renders usage against a total as a fixed-width text bar,
// e.g. "[######--------------] 75/250". A zero total renders an empty bar.
func FormatQuotaBar(usage, total int64) string {
	const width = 20
	filled := 0
	if total > 0 {
		filled = int(usage * width / total)
		filled = min(filled, width)
	}
	bar := make([]byte, width)
	for i := range bar {
		if i < filled {
			bar[i] = '#'
		} else {
			bar[i] = '-'
		}
	}
	return fmt.Sprintf("[%s] %d/%d", bar, usage, total)
}
