package domain

import "fmt"

// Validate checks the invariants a tournament must hold before it is stored.
func (t Tournament) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTournament)
	}
	if !t.EndTime.After(t.StartTime) {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidTournament)
	}
	if t.TotalSlots <= 0 {
		return fmt.Errorf("%w: total slots must be positive", ErrInvalidTournament)
	}
	if t.EntryFee.IsNegative() || t.PrizePool.IsNegative() {
		return fmt.Errorf("%w: money fields must not be negative", ErrInvalidTournament)
	}
	return nil
}

// Validate checks option count, answer index and timer.
func (q Question) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("%w: question text is required", ErrInvalidQuestion)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: at least two options are required", ErrInvalidQuestion)
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return fmt.Errorf("%w: correct answer %d out of range", ErrInvalidQuestion, q.CorrectAnswer)
	}
	for _, allowed := range AllowedTimers {
		if q.Timer == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: timer %ds not allowed", ErrInvalidQuestion, q.Timer)
}

// ValidAnswer reports whether idx is NoAnswer or an index into Options.
func (q Question) ValidAnswer(idx int) bool {
	return idx == NoAnswer || (idx >= 0 && idx < len(q.Options))
}
