package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"quiz-tournament-service/internal/domain"
)

// JoinResult is what a successful join produces.
type JoinResult struct {
	Payment     domain.Payment     `json:"payment"`
	Participant domain.Participant `json:"participant"`
}

// JoinService enrolls users into tournaments and collects entry fees.
type JoinService struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

func NewJoinService(store Store, opts ...Option) *JoinService {
	o := buildOptions(opts)
	return &JoinService{store: store, now: o.now, logger: o.logger}
}

// JoinTournament charges the entry fee and marks the user as a paid
// participant. The capacity check, the wallet debit, the payment record and
// the participant row are written in one transaction with the tournament row
// locked, so concurrent joins cannot oversell slots.
func (s *JoinService) JoinTournament(ctx context.Context, userID, tournamentID int64, method domain.PaymentMethod) (JoinResult, error) {
	var (
		result JoinResult
		fee    decimal.Decimal
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		tournament, err := repos.Tournaments.GetForUpdate(ctx, tournamentID)
		if err != nil {
			return err
		}
		fee = tournament.EntryFee

		existing, err := repos.Participants.Get(ctx, userID, tournamentID)
		switch {
		case err == nil && existing.Eligible():
			return domain.ErrAlreadyJoined
		case err != nil && !errors.Is(err, domain.ErrNotJoined):
			return err
		}

		taken, err := repos.Participants.CountCompleted(ctx, tournamentID)
		if err != nil {
			return err
		}
		if taken >= tournament.TotalSlots {
			return domain.ErrFull
		}

		now := s.now()
		if !domain.IsUpcoming(tournament, now) {
			return domain.ErrAlreadyStarted
		}
		if !method.Valid() {
			return domain.ErrInvalidPaymentMethod
		}
		// settlement credits every winner's wallet, so the user must exist
		// whatever the payment method
		if _, err := repos.Wallets.Get(ctx, userID); err != nil {
			return err
		}

		// paytm and upi are mocked as immediately successful
		if method == domain.MethodWallet {
			if _, err := debit(ctx, repos.Wallets, userID, tournament.EntryFee); err != nil {
				return err
			}
		}

		payment := domain.Payment{
			UserID:        userID,
			TournamentID:  tournamentID,
			Amount:        tournament.EntryFee,
			Status:        domain.PaymentRecordSuccess,
			Method:        method,
			TransactionID: newTransactionID(),
			CreatedAt:     now,
		}
		if err := repos.Payments.Create(ctx, &payment); err != nil {
			return err
		}

		participant := domain.Participant{
			UserID:        userID,
			TournamentID:  tournamentID,
			PaymentStatus: domain.PaymentCompleted,
			Prize:         decimal.Zero,
			CreatedAt:     now,
		}
		if err := repos.Participants.Upsert(ctx, &participant); err != nil {
			return err
		}

		result = JoinResult{Payment: payment, Participant: participant}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			s.recordFailedPayment(ctx, userID, tournamentID, fee, method)
		}
		return JoinResult{}, err
	}

	s.logger.Info("tournament joined",
		slog.Int64("user_id", userID),
		slog.Int64("tournament_id", tournamentID),
		slog.String("method", string(method)),
		slog.String("transaction_id", result.Payment.TransactionID))
	return result, nil
}

// recordFailedPayment appends a failed ledger entry after the join
// transaction rolled back. Failure to record it does not change the outcome
// reported to the caller.
func (s *JoinService) recordFailedPayment(ctx context.Context, userID, tournamentID int64, amount decimal.Decimal, method domain.PaymentMethod) {
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		return repos.Payments.Create(ctx, &domain.Payment{
			UserID:        userID,
			TournamentID:  tournamentID,
			Amount:        amount,
			Status:        domain.PaymentRecordFailed,
			Method:        method,
			TransactionID: newTransactionID(),
			CreatedAt:     s.now(),
		})
	})
	if err != nil {
		s.logger.Error("record failed payment",
			slog.Int64("user_id", userID),
			slog.Int64("tournament_id", tournamentID),
			slog.Any("error", err))
	}
}

func newTransactionID() string {
	return "tx-" + uuid.NewString()
}
