package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"quiz-tournament-service/internal/domain"
)

// RecentWinnersLimit caps the recent winners list.
const RecentWinnersLimit = 10

// Winner is a prize-earning participant shown on the landing page.
type Winner struct {
	UserID         int64           `json:"userId"`
	TournamentID   int64           `json:"tournamentId"`
	TournamentName string          `json:"tournamentName"`
	Score          int             `json:"score"`
	Prize          decimal.Decimal `json:"prize"`
}

// LeaderboardService serves rankings and winners.
type LeaderboardService struct {
	store Store
	now   func() time.Time
}

func NewLeaderboardService(store Store, opts ...Option) *LeaderboardService {
	o := buildOptions(opts)
	return &LeaderboardService{store: store, now: o.now}
}

// Leaderboard ranks the tournament's attempted participants. Before results
// are published only admins may look; everyone else gets
// domain.ErrResultsNotPublished.
func (s *LeaderboardService) Leaderboard(ctx context.Context, tournamentID int64, isAdmin bool) (domain.Leaderboard, error) {
	var lb domain.Leaderboard
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		tournament, err := repos.Tournaments.Get(ctx, tournamentID)
		if err != nil {
			return err
		}
		if !tournament.ResultPublished && !isAdmin {
			return domain.ErrResultsNotPublished
		}
		participants, err := repos.Participants.ListByTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		lb = domain.Leaderboard{
			TournamentID: tournamentID,
			Published:    tournament.ResultPublished,
			Entries:      domain.Rank(eligibleOnly(participants)),
			UpdatedAt:    s.now(),
		}
		return nil
	})
	return lb, err
}

// RecentWinners lists participants with a positive prize, largest first.
func (s *LeaderboardService) RecentWinners(ctx context.Context) ([]Winner, error) {
	var winners []Winner
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		participants, err := repos.Participants.ListWinners(ctx, RecentWinnersLimit)
		if err != nil {
			return err
		}
		names := make(map[int64]string)
		winners = make([]Winner, 0, len(participants))
		for _, p := range participants {
			name, ok := names[p.TournamentID]
			if !ok {
				t, err := repos.Tournaments.Get(ctx, p.TournamentID)
				if err != nil {
					return err
				}
				name = t.Name
				names[p.TournamentID] = name
			}
			winners = append(winners, Winner{
				UserID:         p.UserID,
				TournamentID:   p.TournamentID,
				TournamentName: name,
				Score:          p.Score,
				Prize:          p.Prize,
			})
		}
		return nil
	})
	return winners, err
}
