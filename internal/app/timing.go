package app

import (
	"context"

	"quiz-tournament-service/internal/domain"
)

// TimingSource decides how many seconds an answer counts for.
type TimingSource interface {
	TimeTaken(ctx context.Context, userID, tournamentID int64, q domain.Question, reported int) (int, error)
}

// ClientTiming trusts the client's countdown and clamps the reported value to
// [0, timer].
type ClientTiming struct{}

func (ClientTiming) TimeTaken(_ context.Context, _, _ int64, q domain.Question, reported int) (int, error) {
	if reported < 0 {
		return 0, nil
	}
	if q.Timer > 0 && reported > q.Timer {
		return q.Timer, nil
	}
	return reported, nil
}
