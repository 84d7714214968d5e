package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"quiz-tournament-service/internal/app"
	"quiz-tournament-service/internal/config"
	"quiz-tournament-service/internal/domain"
	"quiz-tournament-service/internal/infra/memory"
	"quiz-tournament-service/internal/infra/postgres"
	redisinfra "quiz-tournament-service/internal/infra/redis"
	transport "quiz-tournament-service/internal/transport/http"
)

// backend is the store plus the caches the services run on.
type backend struct {
	store   app.Store
	content app.ContentRepository
	tracker app.AttemptTracker
	users   userCreator
	closers []func()
}

type userCreator interface {
	createUser(ctx context.Context, u *domain.User) error
}

type pgUsers struct{ store *postgres.Store }

func (p pgUsers) createUser(ctx context.Context, u *domain.User) error {
	return p.store.CreateUser(ctx, u)
}

type memUsers struct{ store *memory.Store }

func (m memUsers) createUser(_ context.Context, u *domain.User) error {
	*u = m.store.AddUser(*u)
	return nil
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend uses Postgres when postgres.url is set and Redis when
// redis.addr is set, falling back to in-process implementations.
func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{}
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)

	var loader app.QuizLoader
	if cfg.Postgres.URL != "" {
		db := postgres.OpenDB(cfg.Postgres.URL)
		b.closers = append(b.closers, func() { db.Close() })
		store := postgres.NewStore(db)
		b.store, b.users = store, pgUsers{store}

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect pgx pool: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		loader = postgres.NewQuizLoader(pool)
	} else {
		store := memory.NewStore()
		b.store, b.users = store, memUsers{store}
		loader = app.NewStoreQuizLoader(store)
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		b.content = redisinfra.NewContentRepository(client, loader, config.TTLDuration(cfg.Redis.TTL, quizTTL))
		b.tracker = redisinfra.NewAttemptTracker(client)
	} else {
		b.content = memory.NewContentRepository(loader, quizTTL)
		b.tracker = memory.NewAttemptTracker(nil)
	}
	return b, nil
}

func newServices(b *backend, cfg config.Config, logger *slog.Logger) (transport.Services, error) {
	shares, err := cfg.PrizeShares()
	if err != nil {
		return transport.Services{}, fmt.Errorf("settlement.prize_shares: %w", err)
	}
	opts := []app.Option{app.WithLogger(logger)}
	hub := app.NewResultsHub()
	return transport.Services{
		Catalog:     app.NewCatalogService(b.store, b.content, opts...),
		Join:        app.NewJoinService(b.store, opts...),
		Attempts:    app.NewAttemptService(b.store, b.content, b.tracker, app.ClientTiming{}, opts...),
		Settlement:  app.NewSettlementService(b.store, hub, shares, opts...),
		Leaderboard: app.NewLeaderboardService(b.store, opts...),
		Ledger:      app.NewLedger(b.store, opts...),
		Stats:       app.NewStatsService(b.store, b.tracker, opts...),
		Hub:         hub,
	}, nil
}

// seedDemo fills an in-memory store with an admin, a funded player and one
// upcoming tournament so the API can be tried without a database.
func seedDemo(ctx context.Context, b *backend, svc transport.Services, logger *slog.Logger) error {
	admin := domain.User{Username: "admin", IsAdmin: true, Wallet: decimal.Zero}
	player := domain.User{Username: "player", Wallet: decimal.NewFromInt(500)}
	for _, u := range []*domain.User{&admin, &player} {
		if err := b.users.createUser(ctx, u); err != nil {
			return err
		}
	}

	start := time.Now().Add(5 * time.Minute).Truncate(time.Minute)
	tour, err := svc.Catalog.CreateTournament(ctx, domain.Tournament{
		Name:        "Demo Cup",
		Description: "Five quick questions",
		EntryFee:    decimal.NewFromInt(50),
		PrizePool:   decimal.NewFromInt(1000),
		TotalSlots:  100,
		StartTime:   start,
		EndTime:     start.Add(30 * time.Minute),
		IsPublished: true,
	})
	if err != nil {
		return err
	}
	if _, err := svc.Catalog.CreateQuiz(ctx, tour.ID, "Warm-up"); err != nil {
		return err
	}
	for _, q := range demoQuestions() {
		if _, err := svc.Catalog.AddQuestion(ctx, tour.ID, q); err != nil {
			return err
		}
	}
	logger.Info("demo data seeded",
		slog.Int64("admin_id", admin.ID),
		slog.Int64("player_id", player.ID),
		slog.Int64("tournament_id", tour.ID),
		slog.Time("starts_at", tour.StartTime))
	return nil
}

func demoQuestions() []domain.Question {
	return []domain.Question{
		{Text: "What is 2 + 2?", Options: []string{"3", "4", "5", "22"}, CorrectAnswer: 1, Timer: 10},
		{Text: "Which planet is known as the red planet?", Options: []string{"Venus", "Jupiter", "Mars", "Mercury"}, CorrectAnswer: 2, Timer: 15},
		{Text: "How many continents are there?", Options: []string{"5", "6", "7", "8"}, CorrectAnswer: 2, Timer: 15},
		{Text: "What is the boiling point of water at sea level in Celsius?", Options: []string{"90", "100", "110"}, CorrectAnswer: 1, Timer: 20},
		{Text: "Which language has goroutines?", Options: []string{"Go", "Python", "Ruby", "Perl"}, CorrectAnswer: 0, Timer: 30},
	}
}
