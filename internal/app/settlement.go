package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"quiz-tournament-service/internal/domain"
)

// Settlement is the outcome of a successful PublishResults.
type Settlement struct {
	Tournament  domain.Tournament  `json:"tournament"`
	Leaderboard domain.Leaderboard `json:"leaderboard"`
	Receipts    []domain.Award     `json:"receipts"`
}

// SettlementService publishes tournament results and pays out prizes.
type SettlementService struct {
	store  Store
	hub    *ResultsHub
	shares []decimal.Decimal
	now    func() time.Time
	logger *slog.Logger
}

// NewSettlementService builds a settlement engine. Empty shares fall back to
// domain.DefaultPrizeShares. hub may be nil.
func NewSettlementService(store Store, hub *ResultsHub, shares []decimal.Decimal, opts ...Option) *SettlementService {
	o := buildOptions(opts)
	if len(shares) == 0 {
		shares = domain.DefaultPrizeShares
	}
	return &SettlementService{
		store:  store,
		hub:    hub,
		shares: shares,
		now:    o.now,
		logger: o.logger,
	}
}

// PublishResults ranks the tournament, writes prizes and credits wallets.
// The resultPublished flag is claimed with a compare-and-set in the same
// transaction as the payouts: either everything commits, or nothing does and
// the call can be retried. A second call returns domain.ErrAlreadyPublished.
func (s *SettlementService) PublishResults(ctx context.Context, tournamentID int64) (Settlement, error) {
	var result Settlement
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		tournament, err := repos.Tournaments.GetForUpdate(ctx, tournamentID)
		if err != nil {
			return err
		}
		if tournament.ResultPublished {
			return domain.ErrAlreadyPublished
		}
		claimed, err := repos.Tournaments.ClaimResultPublication(ctx, tournamentID)
		if err != nil {
			return err
		}
		if !claimed {
			return domain.ErrAlreadyPublished
		}
		tournament.ResultPublished = true

		participants, err := repos.Participants.ListByTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		ranked := domain.Rank(eligibleOnly(participants))
		awards := domain.SplitPrizes(tournament.PrizePool, s.shares, ranked)

		paid := make(map[int64]decimal.Decimal, len(awards))
		for _, a := range awards {
			if err := repos.Participants.UpdatePrize(ctx, a.UserID, tournamentID, a.Amount); err != nil {
				return err
			}
			if _, err := credit(ctx, repos.Wallets, a.UserID, a.Amount); err != nil {
				return err
			}
			paid[a.UserID] = a.Amount
		}
		for i := range ranked {
			ranked[i].Prize = decimal.Zero
			if amount, ok := paid[ranked[i].UserID]; ok {
				ranked[i].Prize = amount
			}
		}

		result = Settlement{
			Tournament: tournament,
			Leaderboard: domain.Leaderboard{
				TournamentID: tournamentID,
				Published:    true,
				Entries:      ranked,
				UpdatedAt:    s.now(),
			},
			Receipts: awards,
		}
		return nil
	})
	if err != nil {
		return Settlement{}, err
	}

	for _, r := range result.Receipts {
		s.logger.Info("prize credited",
			slog.Int64("tournament_id", tournamentID),
			slog.Int("rank", r.Rank),
			slog.Int64("user_id", r.UserID),
			slog.String("amount", r.Amount.StringFixed(domain.MoneyPlaces)))
	}
	s.logger.Info("results published",
		slog.Int64("tournament_id", tournamentID),
		slog.Int("ranked", len(result.Leaderboard.Entries)))

	if s.hub != nil {
		s.hub.Publish(result.Leaderboard)
	}
	return result, nil
}

// SettleEnded publishes results for every published tournament whose live
// window has closed and that has not been settled yet. Failures are logged
// and do not stop the sweep. It returns the ids that were settled.
func (s *SettlementService) SettleEnded(ctx context.Context) ([]int64, error) {
	var due []int64
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		tournaments, err := repos.Tournaments.List(ctx)
		if err != nil {
			return err
		}
		now := s.now()
		for _, t := range tournaments {
			if t.IsPublished && !t.ResultPublished && domain.IsEnded(t, now) {
				due = append(due, t.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	settled := make([]int64, 0, len(due))
	for _, id := range due {
		if err := ctx.Err(); err != nil {
			return settled, err
		}
		if _, err := s.PublishResults(ctx, id); err != nil {
			if !errors.Is(err, domain.ErrAlreadyPublished) {
				s.logger.Error("auto settlement", slog.Int64("tournament_id", id), slog.Any("error", err))
			}
			continue
		}
		settled = append(settled, id)
	}
	return settled, nil
}

func eligibleOnly(participants []domain.Participant) []domain.Participant {
	out := make([]domain.Participant, 0, len(participants))
	for _, p := range participants {
		if p.Eligible() {
			out = append(out, p)
		}
	}
	return out
}
