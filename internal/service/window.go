package service

import "time"

// Window is a resolved query horizon. A nil Since means all-time.
type Window struct {
	Label string
	Since *time.Time
}

// ResolveWindow maps a period label onto a lower time bound. Recognised
// labels are "7d" and "30d"; anything else, including empty, is all-time.
func ResolveWindow(period string, now time.Time) Window {
	switch period {
	case "7d":
		since := now.AddDate(0, 0, -7)
		return Window{Label: "7d", Since: &since}
	case "30d":
		since := now.AddDate(0, 0, -30)
		return Window{Label: "30d", Since: &since}
	default:
		return Window{Label: "all"}
	}
}
