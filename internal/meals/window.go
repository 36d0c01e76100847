package meals

import "time"

// DateOnly truncates t to midnight UTC. Slot and order dates are always
// stored in this form.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// beyondWindow reports whether date falls strictly after today plus leadDays.
func beyondWindow(date, now time.Time, leadDays int) bool {
	return DateOnly(date).After(DateOnly(now).AddDate(0, 0, leadDays))
}
