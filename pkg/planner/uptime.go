package planner

import "fmt"

// FormatUptime renders whole minutes as "2 Days, 3 Hours And 5 Minutes".
// Days and hours are omitted while zero.
func FormatUptime(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	hours := minutes / 60
	minutes -= hours * 60
	out := fmt.Sprintf("%d Minute%s", minutes, plural(minutes))
	if hours == 0 {
		return out
	}
	days := hours / 24
	hours -= days * 24
	out = fmt.Sprintf("%d Hour%s And %s", hours, plural(hours), out)
	if days > 0 {
		out = fmt.Sprintf("%d Day%s, %s", days, plural(days), out)
	}
	return out
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}
