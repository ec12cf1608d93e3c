package sla

import "fmt"

// FormatMinutes renders a remaining time such as "2d 3h", "5h 20m" or "45m".
// Zero and negative values render as "expired".
func FormatMinutes(minutes int) string {
	if minutes <= 0 {
		return "expired"
	}
	days := minutes / (24 * 60)
	hours := minutes % (24 * 60) / 60
	mins := minutes % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}
