package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-tournament-service/internal/domain"
)

func TestContentRepositoryCaches(t *testing.T) {
	loader := &countingLoader{content: sampleContent()}
	repo := NewContentRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), 1); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	content, err := repo.GetQuiz(context.Background(), 1)
	if err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
	if len(content.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(content.Questions))
	}
}

func TestContentRepositoryExpiresAndInvalidates(t *testing.T) {
	loader := &countingLoader{content: sampleContent()}
	repo := NewContentRepository(loader, time.Minute)
	now := time.Now()
	repo.clock = func() time.Time { return now }

	if _, err := repo.GetQuiz(context.Background(), 1); err != nil {
		t.Fatalf("get quiz: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := repo.GetQuiz(context.Background(), 1); err != nil {
		t.Fatalf("get quiz after expiry: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls %d", loader.calls)
	}

	if err := repo.Invalidate(context.Background(), 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := repo.GetQuiz(context.Background(), 1); err != nil {
		t.Fatalf("get quiz after invalidate: %v", err)
	}
	if loader.calls != 3 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls)
	}
}

func TestContentRepositoryDoesNotCacheErrors(t *testing.T) {
	loader := &countingLoader{err: domain.ErrQuizMissing}
	repo := NewContentRepository(loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := repo.GetQuiz(context.Background(), 7); !errors.Is(err, domain.ErrQuizMissing) {
			t.Fatalf("expected quiz missing, got %v", err)
		}
	}
	if loader.calls != 2 {
		t.Fatalf("expected errors to bypass the cache, loader calls %d", loader.calls)
	}
}

type countingLoader struct {
	content domain.QuizContent
	err     error
	calls   int
}

func (l *countingLoader) LoadQuiz(_ context.Context, _ int64) (domain.QuizContent, error) {
	l.calls++
	if l.err != nil {
		return domain.QuizContent{}, l.err
	}
	return l.content, nil
}

func sampleContent() domain.QuizContent {
	return domain.QuizContent{
		Quiz: domain.Quiz{ID: 10, TournamentID: 1, Title: "Capitals"},
		Questions: []domain.Question{
			{ID: 11, QuizID: 10, Text: "Capital of France?", Options: []string{"Lyon", "Paris"}, CorrectAnswer: 1, Timer: 15},
			{ID: 12, QuizID: 10, Text: "Capital of Japan?", Options: []string{"Tokyo", "Osaka"}, CorrectAnswer: 0, Timer: 10},
		},
	}
}
