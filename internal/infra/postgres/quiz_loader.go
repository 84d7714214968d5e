package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quiz-tournament-service/internal/domain"
)

// QuizLoader reads a tournament's quiz and its questions straight from
// Postgres. It sits behind the content cache and never writes.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, tournamentID int64) (domain.QuizContent, error) {
	var quiz domain.Quiz
	err := l.pool.QueryRow(ctx,
		`SELECT id, tournament_id, title, created_at FROM quizzes WHERE tournament_id=$1`,
		tournamentID,
	).Scan(&quiz.ID, &quiz.TournamentID, &quiz.Title, &quiz.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.QuizContent{}, domain.ErrQuizMissing
		}
		return domain.QuizContent{}, fmt.Errorf("load quiz: %w", err)
	}

	rows, err := l.pool.Query(ctx,
		`SELECT id, quiz_id, question, options, correct_answer, timer FROM questions WHERE quiz_id=$1 ORDER BY id`,
		quiz.ID,
	)
	if err != nil {
		return domain.QuizContent{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var (
			q       domain.Question
			options []byte
		)
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &options, &q.CorrectAnswer, &q.Timer); err != nil {
			return domain.QuizContent{}, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return domain.QuizContent{}, fmt.Errorf("unmarshal options: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.QuizContent{}, fmt.Errorf("load questions: %w", err)
	}
	return domain.QuizContent{Quiz: quiz, Questions: questions}, nil
}
