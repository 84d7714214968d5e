package app_test

import (
	"testing"

	"quiz-tournament-service/internal/app"
	"quiz-tournament-service/internal/domain"
)

func TestResultsHubKeepsLatest(t *testing.T) {
	hub := app.NewResultsHub()
	ch, cancel := hub.Subscribe(1)

	hub.Publish(domain.Leaderboard{TournamentID: 1, Entries: []domain.RankedParticipant{{Rank: 1}}})
	hub.Publish(domain.Leaderboard{TournamentID: 1, Entries: []domain.RankedParticipant{{Rank: 1}, {Rank: 2}}})
	hub.Publish(domain.Leaderboard{TournamentID: 2})

	lb := <-ch
	if len(lb.Entries) != 2 {
		t.Fatalf("expected latest leaderboard, got %d entries", len(lb.Entries))
	}
	if hub.Subscribers(1) != 1 {
		t.Fatalf("expected one subscriber")
	}

	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed after cancel")
	}
	if hub.Subscribers(1) != 0 {
		t.Fatalf("expected no subscribers after cancel")
	}
	cancel()
}
