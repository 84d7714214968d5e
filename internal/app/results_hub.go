package app

import (
	"sync"

	"quiz-tournament-service/internal/domain"
)

// ResultsHub fans published leaderboards out to in-process subscribers.
type ResultsHub struct {
	mu          sync.Mutex
	subscribers map[int64]map[chan domain.Leaderboard]struct{}
}

func NewResultsHub() *ResultsHub {
	return &ResultsHub{
		subscribers: make(map[int64]map[chan domain.Leaderboard]struct{}),
	}
}

// Subscribe returns a channel that receives the leaderboard of tournamentID
// when its results are published. The caller must invoke the returned cancel
// function to avoid leaks.
func (h *ResultsHub) Subscribe(tournamentID int64) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 1)

	h.mu.Lock()
	subs, ok := h.subscribers[tournamentID]
	if !ok {
		subs = make(map[chan domain.Leaderboard]struct{})
		h.subscribers[tournamentID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subscribers[tournamentID]
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(h.subscribers, tournamentID)
		}
	}
	return ch, cancel
}

// Publish delivers lb to every subscriber of its tournament without blocking.
func (h *ResultsHub) Publish(lb domain.Leaderboard) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[lb.TournamentID] {
		select {
		case ch <- lb:
		default:
			// replace the stale value a slow reader has not drained yet
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}

// Subscribers reports how many listeners a tournament has.
func (h *ResultsHub) Subscribers(tournamentID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[tournamentID])
}
