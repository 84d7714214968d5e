package app

import (
	"context"

	"github.com/shopspring/decimal"
	"quiz-tournament-service/internal/domain"
)

// Store runs a unit of work against the backing store. Every repository call
// made through repos inside fn commits or rolls back together. Implementations
// must not be re-entered from inside fn.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Repositories bundles the per-entity repositories bound to one transaction.
type Repositories struct {
	Tournaments  TournamentRepository
	Quizzes      QuizRepository
	Questions    QuestionRepository
	Participants ParticipantRepository
	Responses    ResponseRepository
	Wallets      WalletRepository
	Payments     PaymentRepository
}

type TournamentRepository interface {
	Get(ctx context.Context, id int64) (domain.Tournament, error)
	// GetForUpdate reads the tournament and holds a write lock on it until the
	// transaction ends. Joins use it to serialize the slot count.
	GetForUpdate(ctx context.Context, id int64) (domain.Tournament, error)
	// GetForShare reads the tournament and blocks while another transaction
	// holds the write lock. Attempt writes use it to queue behind settlement.
	GetForShare(ctx context.Context, id int64) (domain.Tournament, error)
	List(ctx context.Context) ([]domain.Tournament, error)
	Create(ctx context.Context, t *domain.Tournament) error
	Update(ctx context.Context, t domain.Tournament) error
	// ClaimResultPublication flips resultPublished from false to true and
	// reports whether this call did the flip.
	ClaimResultPublication(ctx context.Context, id int64) (bool, error)
}

type QuizRepository interface {
	GetByTournament(ctx context.Context, tournamentID int64) (domain.Quiz, error)
	Create(ctx context.Context, q *domain.Quiz) error
}

type QuestionRepository interface {
	Get(ctx context.Context, id int64) (domain.Question, error)
	// ListByQuiz returns questions in insertion order.
	ListByQuiz(ctx context.Context, quizID int64) ([]domain.Question, error)
	Create(ctx context.Context, q *domain.Question) error
}

type ParticipantRepository interface {
	// Get returns domain.ErrNotJoined when no row exists.
	Get(ctx context.Context, userID, tournamentID int64) (domain.Participant, error)
	Upsert(ctx context.Context, p *domain.Participant) error
	CountCompleted(ctx context.Context, tournamentID int64) (int, error)
	ListByTournament(ctx context.Context, tournamentID int64) ([]domain.Participant, error)
	// UpdateScore stores the final score and marks the attempt as done.
	UpdateScore(ctx context.Context, userID, tournamentID int64, score, timeTaken int) error
	UpdatePrize(ctx context.Context, userID, tournamentID int64, prize decimal.Decimal) error
	ListWinners(ctx context.Context, limit int) ([]domain.Participant, error)
}

type ResponseRepository interface {
	// Save returns domain.ErrDuplicateResponse when the user already answered
	// the question in this tournament.
	Save(ctx context.Context, r *domain.UserResponse) error
	ListByUserAndTournament(ctx context.Context, userID, tournamentID int64) ([]domain.UserResponse, error)
}

type WalletRepository interface {
	Get(ctx context.Context, userID int64) (domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// Apply adds delta to the balance and returns the new balance. A delta
	// that would take the balance below zero fails with
	// domain.ErrInsufficientBalance and changes nothing.
	Apply(ctx context.Context, userID int64, delta decimal.Decimal) (decimal.Decimal, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	ListByTournament(ctx context.Context, tournamentID int64) ([]domain.Payment, error)
	// TotalRevenue sums successful payments.
	TotalRevenue(ctx context.Context) (decimal.Decimal, error)
}
