package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"quiz-tournament-service/internal/domain"
)

// Stats is the admin dashboard summary.
type Stats struct {
	TotalTournaments  int             `json:"totalTournaments"`
	LiveTournaments   int             `json:"liveTournaments"`
	TotalParticipants int             `json:"totalParticipants"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	ActiveAttempts    int             `json:"activeAttempts"`
}

type StatsService struct {
	store   Store
	tracker AttemptTracker
	now     func() time.Time
	logger  *slog.Logger
}

func NewStatsService(store Store, tracker AttemptTracker, opts ...Option) *StatsService {
	o := buildOptions(opts)
	return &StatsService{store: store, tracker: tracker, now: o.now, logger: o.logger}
}

// Stats counts distinct paying users across all tournaments. Active attempts
// come from the tracker and are best effort.
func (s *StatsService) Stats(ctx context.Context) (Stats, error) {
	var (
		stats Stats
		live  []int64
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		tournaments, err := repos.Tournaments.List(ctx)
		if err != nil {
			return err
		}
		now := s.now()
		users := make(map[int64]struct{})
		for _, t := range tournaments {
			if domain.IsLive(t, now) {
				live = append(live, t.ID)
			}
			participants, err := repos.Participants.ListByTournament(ctx, t.ID)
			if err != nil {
				return err
			}
			for _, p := range participants {
				if p.Eligible() {
					users[p.UserID] = struct{}{}
				}
			}
		}
		revenue, err := repos.Payments.TotalRevenue(ctx)
		if err != nil {
			return err
		}
		stats = Stats{
			TotalTournaments:  len(tournaments),
			LiveTournaments:   len(live),
			TotalParticipants: len(users),
			TotalRevenue:      revenue,
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	if s.tracker != nil {
		for _, id := range live {
			n, err := s.tracker.Active(ctx, id)
			if err != nil {
				s.logger.Warn("active attempts", slog.Int64("tournament_id", id), slog.Any("error", err))
				continue
			}
			stats.ActiveAttempts += n
		}
	}
	return stats, nil
}
