package app_test

import (
	"context"
	"testing"
	"time"

	"quiz-tournament-service/internal/app"
)

func TestAutoSettlerPublishesEndedTournaments(t *testing.T) {
	f := newFixture(t)
	tour := f.tournament(t, 0, 100, 5)
	f.now = tour.EndTime.Add(time.Minute)

	settler := app.NewAutoSettler(f.settlement, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- settler.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for {
		got, err := f.catalog.Get(context.Background(), tour.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.ResultPublished {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("tournament was not settled by the scheduler")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("scheduler did not stop")
	}
}
