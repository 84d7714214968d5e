package domain

import "time"

// Phase is where a tournament stands relative to its live window.
type Phase string

const (
	PhaseUpcoming Phase = "upcoming"
	PhaseLive     Phase = "live"
	PhaseEnded    Phase = "ended"
)

// The live window is [StartTime, EndTime], inclusive on both ends. Every
// caller goes through these three functions so the boundary is applied the
// same way everywhere.

// IsLive reports whether now falls inside the live window.
func IsLive(t Tournament, now time.Time) bool {
	return !now.Before(t.StartTime) && !now.After(t.EndTime)
}

// IsUpcoming reports whether the tournament has not started yet.
func IsUpcoming(t Tournament, now time.Time) bool {
	return now.Before(t.StartTime)
}

// IsEnded reports whether the live window has closed.
func IsEnded(t Tournament, now time.Time) bool {
	return now.After(t.EndTime)
}

// PhaseAt classifies the tournament at now.
func PhaseAt(t Tournament, now time.Time) Phase {
	switch {
	case IsUpcoming(t, now):
		return PhaseUpcoming
	case IsEnded(t, now):
		return PhaseEnded
	default:
		return PhaseLive
	}
}

// CheckLive returns ErrNotStarted or ErrEnded when now is outside the window.
func CheckLive(t Tournament, now time.Time) error {
	switch PhaseAt(t, now) {
	case PhaseUpcoming:
		return ErrNotStarted
	case PhaseEnded:
		return ErrEnded
	}
	return nil
}
