package i18n

import (
	"time"
)

// Ago returns a compact relative time such as "5m ago" for t as seen at now.
// The zero time renders as "".
func Ago(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return T("common.time.justNow", "just now")
	case d < time.Hour:
		return Tf("common.time.minsAgo", "%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return Tf("common.time.hoursAgo", "%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return Tf("common.time.daysAgo", "%dd ago", int(d.Hours()/24))
	case d < 365*24*time.Hour:
		return Tf("common.time.monthsAgo", "%dmo ago", int(d.Hours()/(24*30)))
	default:
		return Tf("common.time.yearsAgo", "%dy ago", int(d.Hours()/(24*365)))
	}
}
