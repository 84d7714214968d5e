package app_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"quiz-tournament-service/internal/app"
	"quiz-tournament-service/internal/domain"
	"quiz-tournament-service/internal/infra/memory"
)

type fixture struct {
	now time.Time

	store   *memory.Store
	content *memory.ContentRepository
	tracker *memory.AttemptTracker
	hub     *app.ResultsHub

	catalog     *app.CatalogService
	join        *app.JoinService
	attempt     *app.AttemptService
	settlement  *app.SettlementService
	leaderboard *app.LeaderboardService
	ledger      *app.Ledger
	stats       *app.StatsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		now:   time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC),
		store: memory.NewStore(),
		hub:   app.NewResultsHub(),
	}
	f.tracker = memory.NewAttemptTracker(func() time.Time { return f.now })
	opts := []app.Option{
		app.WithClock(func() time.Time { return f.now }),
		app.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	f.content = memory.NewContentRepository(app.NewStoreQuizLoader(f.store), time.Minute)
	f.catalog = app.NewCatalogService(f.store, f.content, opts...)
	f.join = app.NewJoinService(f.store, opts...)
	f.attempt = app.NewAttemptService(f.store, f.content, f.tracker, app.ClientTiming{}, opts...)
	f.settlement = app.NewSettlementService(f.store, f.hub, nil, opts...)
	f.leaderboard = app.NewLeaderboardService(f.store, opts...)
	f.ledger = app.NewLedger(f.store, opts...)
	f.stats = app.NewStatsService(f.store, f.tracker, opts...)
	return f
}

func (f *fixture) user(t *testing.T, name string, wallet int64) domain.User {
	t.Helper()
	return f.store.AddUser(domain.User{Username: name, Wallet: decimal.NewFromInt(wallet)})
}

// tournament creates a published tournament starting in one hour and lasting
// one hour, with a quiz of five questions whose correct answer is index 0.
func (f *fixture) tournament(t *testing.T, fee, pool int64, slots int) domain.Tournament {
	t.Helper()
	ctx := context.Background()
	tour, err := f.catalog.CreateTournament(ctx, domain.Tournament{
		Name:        "Friday Trivia",
		EntryFee:    decimal.NewFromInt(fee),
		PrizePool:   decimal.NewFromInt(pool),
		TotalSlots:  slots,
		StartTime:   f.now.Add(time.Hour),
		EndTime:     f.now.Add(2 * time.Hour),
		IsPublished: true,
	})
	if err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	if _, err := f.catalog.CreateQuiz(ctx, tour.ID, "General knowledge"); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	for i := 0; i < 5; i++ {
		_, err := f.catalog.AddQuestion(ctx, tour.ID, domain.Question{
			Text:          "Question",
			Options:       []string{"right", "wrong", "also wrong", "nope"},
			CorrectAnswer: 0,
			Timer:         15,
		})
		if err != nil {
			t.Fatalf("add question: %v", err)
		}
	}
	return tour
}

func (f *fixture) goLive(tour domain.Tournament) {
	f.now = tour.StartTime.Add(time.Minute)
}

func (f *fixture) mustJoin(t *testing.T, userID int64, tour domain.Tournament, method domain.PaymentMethod) {
	t.Helper()
	if _, err := f.join.JoinTournament(context.Background(), userID, tour.ID, method); err != nil {
		t.Fatalf("join user %d: %v", userID, err)
	}
}

// play runs a full attempt: the first correct questions are answered right,
// the rest wrong, each taking seconds.
func (f *fixture) play(t *testing.T, userID int64, tour domain.Tournament, correct, seconds int) app.FinishResult {
	t.Helper()
	ctx := context.Background()
	start, err := f.attempt.StartAttempt(ctx, userID, tour.ID)
	if err != nil {
		t.Fatalf("start attempt for user %d: %v", userID, err)
	}
	for i, q := range start.Questions {
		answer := 1
		if i < correct {
			answer = 0
		}
		_, err := f.attempt.SubmitAnswer(ctx, userID, tour.ID, app.AnswerSubmission{
			QuestionID:  q.ID,
			AnswerIndex: answer,
			TimeTaken:   seconds,
		})
		if err != nil {
			t.Fatalf("submit answer for user %d: %v", userID, err)
		}
	}
	res, err := f.attempt.FinishAttempt(ctx, userID, tour.ID)
	if err != nil {
		t.Fatalf("finish attempt for user %d: %v", userID, err)
	}
	return res
}

func (f *fixture) balance(t *testing.T, userID int64) decimal.Decimal {
	t.Helper()
	b, err := f.ledger.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return b
}

func (f *fixture) participant(t *testing.T, userID, tournamentID int64) domain.Participant {
	t.Helper()
	var p domain.Participant
	err := f.store.RunInTx(context.Background(), func(ctx context.Context, repos app.Repositories) error {
		var err error
		p, err = repos.Participants.Get(ctx, userID, tournamentID)
		return err
	})
	if err != nil {
		t.Fatalf("participant: %v", err)
	}
	return p
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
