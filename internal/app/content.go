package app

import (
	"context"

	"quiz-tournament-service/internal/domain"
)

// QuizLoader fetches a tournament's quiz and questions from the backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, tournamentID int64) (domain.QuizContent, error)
}

// ContentRepository serves quiz content, typically from a cache in front of a
// QuizLoader. Content is read outside of Store transactions.
type ContentRepository interface {
	GetQuiz(ctx context.Context, tournamentID int64) (domain.QuizContent, error)
	Invalidate(ctx context.Context, tournamentID int64) error
}

// StoreQuizLoader loads quiz content through a Store.
type StoreQuizLoader struct {
	store Store
}

func NewStoreQuizLoader(store Store) *StoreQuizLoader {
	return &StoreQuizLoader{store: store}
}

func (l *StoreQuizLoader) LoadQuiz(ctx context.Context, tournamentID int64) (domain.QuizContent, error) {
	var content domain.QuizContent
	err := l.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		quiz, err := repos.Quizzes.GetByTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		questions, err := repos.Questions.ListByQuiz(ctx, quiz.ID)
		if err != nil {
			return err
		}
		content = domain.QuizContent{Quiz: quiz, Questions: questions}
		return nil
	})
	return content, err
}
