package timer

import "fmt"

// FormatClock renders seconds as MM:SS. Minutes are not wrapped into hours.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// FormatVerbose renders seconds as "1 hour 30 minutes", dropping seconds.
func FormatVerbose(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60

	if hours == 0 {
		return plural(minutes, "minute")
	}
	if minutes == 0 {
		return plural(hours, "hour")
	}
	return plural(hours, "hour") + " " + plural(minutes, "minute")
}

// Progress is the elapsed share of a phase as a percentage in [0, 100].
func Progress(remaining, total int) float64 {
	if total <= 0 {
		return 0
	}
	p := (1 - float64(remaining)/float64(total)) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
