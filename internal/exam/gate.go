package exam

import "time"

// IsOpen reports whether an exam currently accepts participants.
// Both window bounds are inclusive.
func IsOpen(e *Exam, now time.Time) bool {
	if e == nil || e.Status != StatusActive {
		return false
	}
	return !now.Before(e.StartAt) && !now.After(e.EndAt)
}
