package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"quiz-tournament-service/internal/domain"
)

// CatalogService manages tournaments, their quiz and its questions.
type CatalogService struct {
	store   Store
	content ContentRepository
	now     func() time.Time
	logger  *slog.Logger
}

func NewCatalogService(store Store, content ContentRepository, opts ...Option) *CatalogService {
	o := buildOptions(opts)
	return &CatalogService{store: store, content: content, now: o.now, logger: o.logger}
}

// List returns every tournament, published or not.
func (s *CatalogService) List(ctx context.Context) ([]domain.Tournament, error) {
	return s.filter(ctx, func(domain.Tournament, time.Time) bool { return true })
}

// Live returns published tournaments whose window contains now.
func (s *CatalogService) Live(ctx context.Context) ([]domain.Tournament, error) {
	return s.filter(ctx, func(t domain.Tournament, now time.Time) bool {
		return t.IsPublished && domain.IsLive(t, now)
	})
}

// Upcoming returns published tournaments that have not started.
func (s *CatalogService) Upcoming(ctx context.Context) ([]domain.Tournament, error) {
	return s.filter(ctx, func(t domain.Tournament, now time.Time) bool {
		return t.IsPublished && domain.IsUpcoming(t, now)
	})
}

func (s *CatalogService) filter(ctx context.Context, keep func(domain.Tournament, time.Time) bool) ([]domain.Tournament, error) {
	var out []domain.Tournament
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		all, err := repos.Tournaments.List(ctx)
		if err != nil {
			return err
		}
		now := s.now()
		out = make([]domain.Tournament, 0, len(all))
		for _, t := range all {
			if keep(t, now) {
				out = append(out, t)
			}
		}
		return nil
	})
	return out, err
}

func (s *CatalogService) Get(ctx context.Context, id int64) (domain.Tournament, error) {
	var t domain.Tournament
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		var err error
		t, err = repos.Tournaments.Get(ctx, id)
		return err
	})
	return t, err
}

// CreateTournament validates and stores a new tournament. Results always
// start unpublished.
func (s *CatalogService) CreateTournament(ctx context.Context, t domain.Tournament) (domain.Tournament, error) {
	if err := t.Validate(); err != nil {
		return domain.Tournament{}, err
	}
	t.ID = 0
	t.ResultPublished = false
	t.CreatedAt = s.now()
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		return repos.Tournaments.Create(ctx, &t)
	})
	if err != nil {
		return domain.Tournament{}, err
	}
	s.logger.Info("tournament created", slog.Int64("tournament_id", t.ID), slog.String("name", t.Name))
	return t, nil
}

// UpdateTournament replaces the editable fields of a tournament. A settled
// tournament is frozen.
func (s *CatalogService) UpdateTournament(ctx context.Context, t domain.Tournament) (domain.Tournament, error) {
	if err := t.Validate(); err != nil {
		return domain.Tournament{}, err
	}
	var updated domain.Tournament
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		current, err := repos.Tournaments.GetForUpdate(ctx, t.ID)
		if err != nil {
			return err
		}
		if current.ResultPublished {
			return domain.ErrAlreadyPublished
		}
		updated = current
		updated.Name = t.Name
		updated.Description = t.Description
		updated.EntryFee = t.EntryFee
		updated.PrizePool = t.PrizePool
		updated.TotalSlots = t.TotalSlots
		updated.StartTime = t.StartTime
		updated.EndTime = t.EndTime
		updated.IsPublished = t.IsPublished
		return repos.Tournaments.Update(ctx, updated)
	})
	if err != nil {
		return domain.Tournament{}, err
	}
	return updated, nil
}

// PublishTournament makes the tournament visible in the live and upcoming
// lists.
func (s *CatalogService) PublishTournament(ctx context.Context, id int64) (domain.Tournament, error) {
	var t domain.Tournament
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		var err error
		t, err = repos.Tournaments.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t.IsPublished {
			return nil
		}
		t.IsPublished = true
		return repos.Tournaments.Update(ctx, t)
	})
	if err != nil {
		return domain.Tournament{}, err
	}
	return t, nil
}

// CreateQuiz attaches the single quiz a tournament may have.
func (s *CatalogService) CreateQuiz(ctx context.Context, tournamentID int64, title string) (domain.Quiz, error) {
	quiz := domain.Quiz{TournamentID: tournamentID, Title: title, CreatedAt: s.now()}
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		if _, err := repos.Tournaments.GetForUpdate(ctx, tournamentID); err != nil {
			return err
		}
		_, err := repos.Quizzes.GetByTournament(ctx, tournamentID)
		switch {
		case err == nil:
			return domain.ErrQuizExists
		case !errors.Is(err, domain.ErrQuizMissing):
			return err
		}
		return repos.Quizzes.Create(ctx, &quiz)
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	s.invalidate(ctx, tournamentID)
	return quiz, nil
}

// AddQuestion appends a question to the tournament's quiz. Questions are
// delivered in the order they were added.
func (s *CatalogService) AddQuestion(ctx context.Context, tournamentID int64, q domain.Question) (domain.Question, error) {
	if err := q.Validate(); err != nil {
		return domain.Question{}, err
	}
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		t, err := repos.Tournaments.Get(ctx, tournamentID)
		if err != nil {
			return err
		}
		if t.ResultPublished {
			return domain.ErrAlreadyPublished
		}
		quiz, err := repos.Quizzes.GetByTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		q.ID = 0
		q.QuizID = quiz.ID
		return repos.Questions.Create(ctx, &q)
	})
	if err != nil {
		return domain.Question{}, err
	}
	s.invalidate(ctx, tournamentID)
	return q, nil
}

// Participants lists everyone enrolled in the tournament.
func (s *CatalogService) Participants(ctx context.Context, tournamentID int64) ([]domain.Participant, error) {
	var out []domain.Participant
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		if _, err := repos.Tournaments.Get(ctx, tournamentID); err != nil {
			return err
		}
		var err error
		out, err = repos.Participants.ListByTournament(ctx, tournamentID)
		return err
	})
	return out, err
}

func (s *CatalogService) invalidate(ctx context.Context, tournamentID int64) {
	if s.content == nil {
		return
	}
	if err := s.content.Invalidate(ctx, tournamentID); err != nil {
		s.logger.Warn("invalidate quiz content", slog.Int64("tournament_id", tournamentID), slog.Any("error", err))
	}
}
