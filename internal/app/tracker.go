package app

import (
	"context"
	"time"
)

// AttemptTracker remembers which attempts are in progress. Entries are
// advisory; the participant row stays the source of truth.
type AttemptTracker interface {
	// Begin marks the attempt as started and returns the first start time
	// recorded for it. The entry expires at expiresAt.
	Begin(ctx context.Context, tournamentID, userID int64, now, expiresAt time.Time) (time.Time, error)
	End(ctx context.Context, tournamentID, userID int64) error
	Active(ctx context.Context, tournamentID int64) (int, error)
}
