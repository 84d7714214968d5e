package memory

import (
	"context"
	"sync"
	"time"
)

// AttemptTracker is an in-memory app.AttemptTracker.
type AttemptTracker struct {
	mu       sync.Mutex
	clock    func() time.Time
	attempts map[int64]map[int64]attempt
}

type attempt struct {
	startedAt time.Time
	expiresAt time.Time
}

// NewAttemptTracker builds a tracker that judges expiry with clock, or
// time.Now when clock is nil.
func NewAttemptTracker(clock func() time.Time) *AttemptTracker {
	if clock == nil {
		clock = time.Now
	}
	return &AttemptTracker{
		clock:    clock,
		attempts: make(map[int64]map[int64]attempt),
	}
}

func (t *AttemptTracker) Begin(_ context.Context, tournamentID, userID int64, now, expiresAt time.Time) (time.Time, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	byUser, ok := t.attempts[tournamentID]
	if !ok {
		byUser = make(map[int64]attempt)
		t.attempts[tournamentID] = byUser
	}
	if a, ok := byUser[userID]; ok && a.expiresAt.After(now) {
		return a.startedAt, nil
	}
	byUser[userID] = attempt{startedAt: now, expiresAt: expiresAt}
	return now, nil
}

func (t *AttemptTracker) End(_ context.Context, tournamentID, userID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	byUser, ok := t.attempts[tournamentID]
	if !ok {
		return nil
	}
	delete(byUser, userID)
	if len(byUser) == 0 {
		delete(t.attempts, tournamentID)
	}
	return nil
}

// Active counts unexpired attempts and drops expired ones.
func (t *AttemptTracker) Active(_ context.Context, tournamentID int64) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	byUser := t.attempts[tournamentID]
	for userID, a := range byUser {
		if !a.expiresAt.After(now) {
			delete(byUser, userID)
		}
	}
	if len(byUser) == 0 {
		delete(t.attempts, tournamentID)
	}
	return len(byUser), nil
}
