package app

import (
	"context"
	"log/slog"
	"time"

	"quiz-tournament-service/internal/domain"
)

// AnswerSubmission is one answer as reported by the client.
type AnswerSubmission struct {
	QuestionID  int64 `json:"questionId"`
	AnswerIndex int   `json:"answerIndex"`
	TimeTaken   int   `json:"timeTaken"`
}

// StartResult is the question set handed to a player. It never carries
// correct answers.
type StartResult struct {
	Quiz           domain.Quiz             `json:"quiz"`
	Questions      []domain.PublicQuestion `json:"questions"`
	TotalQuestions int                     `json:"totalQuestions"`
	StartedAt      time.Time               `json:"startedAt"`
}

// AnswerResult reveals the correct answer once a submission is stored.
type AnswerResult struct {
	QuestionID    int64 `json:"questionId"`
	IsCorrect     bool  `json:"isCorrect"`
	CorrectAnswer int   `json:"correctAnswer"`
	TimeTaken     int   `json:"timeTaken"`
}

// FinishResult is the final score of an attempt.
type FinishResult struct {
	Score          int `json:"score"`
	TotalQuestions int `json:"totalQuestions"`
	Answered       int `json:"answered"`
	TimeTaken      int `json:"timeTaken"`
}

// AttemptService drives one participant's attempt at a tournament quiz:
// start, answer each question, finish.
type AttemptService struct {
	store   Store
	content ContentRepository
	tracker AttemptTracker
	timing  TimingSource
	now     func() time.Time
	logger  *slog.Logger
}

func NewAttemptService(store Store, content ContentRepository, tracker AttemptTracker, timing TimingSource, opts ...Option) *AttemptService {
	o := buildOptions(opts)
	if timing == nil {
		timing = ClientTiming{}
	}
	return &AttemptService{
		store:   store,
		content: content,
		tracker: tracker,
		timing:  timing,
		now:     o.now,
		logger:  o.logger,
	}
}

// StartAttempt checks eligibility and returns the quiz questions with the
// answers stripped. It may be called repeatedly until the attempt is
// finished and always returns the same questions in the same order.
func (s *AttemptService) StartAttempt(ctx context.Context, userID, tournamentID int64) (StartResult, error) {
	// Content is read before the transaction because the cache may itself
	// go to the store on a miss.
	content, contentErr := s.content.GetQuiz(ctx, tournamentID)

	var tournament domain.Tournament
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		var err error
		tournament, err = repos.Tournaments.Get(ctx, tournamentID)
		if err != nil {
			return err
		}
		if err := domain.CheckLive(tournament, s.now()); err != nil {
			return err
		}
		participant, err := eligibleParticipant(ctx, repos, userID, tournamentID)
		if err != nil {
			return err
		}
		if participant.HasAttempted {
			return domain.ErrAlreadyAttempted
		}
		return contentErr
	})
	if err != nil {
		return StartResult{}, err
	}
	if len(content.Questions) == 0 {
		return StartResult{}, domain.ErrNoQuestions
	}

	startedAt := s.now()
	if s.tracker != nil {
		if first, err := s.tracker.Begin(ctx, tournamentID, userID, startedAt, tournament.EndTime); err != nil {
			s.logger.Warn("attempt tracker begin", slog.Int64("tournament_id", tournamentID), slog.Any("error", err))
		} else {
			startedAt = first
		}
	}

	questions := make([]domain.PublicQuestion, len(content.Questions))
	for i, q := range content.Questions {
		questions[i] = q.Public()
	}
	return StartResult{
		Quiz:           content.Quiz,
		Questions:      questions,
		TotalQuestions: len(questions),
		StartedAt:      startedAt,
	}, nil
}

// SubmitAnswer scores and stores one answer. AnswerIndex domain.NoAnswer
// means the timer ran out and is always wrong. Submission order is not
// checked; only membership of the question in the tournament's quiz is.
func (s *AttemptService) SubmitAnswer(ctx context.Context, userID, tournamentID int64, sub AnswerSubmission) (AnswerResult, error) {
	content, contentErr := s.content.GetQuiz(ctx, tournamentID)

	var result AnswerResult
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		tournament, err := repos.Tournaments.GetForShare(ctx, tournamentID)
		if err != nil {
			return err
		}
		now := s.now()
		if err := domain.CheckLive(tournament, now); err != nil {
			return err
		}
		participant, err := eligibleParticipant(ctx, repos, userID, tournamentID)
		if err != nil {
			return err
		}
		if participant.HasAttempted {
			return domain.ErrAlreadyAttempted
		}
		if contentErr != nil {
			return contentErr
		}

		question, ok := content.Question(sub.QuestionID)
		if !ok {
			return domain.ErrQuestionNotFound
		}
		if !question.ValidAnswer(sub.AnswerIndex) {
			return domain.ErrInvalidAnswer
		}
		timeTaken, err := s.timing.TimeTaken(ctx, userID, tournamentID, question, sub.TimeTaken)
		if err != nil {
			return err
		}

		response := domain.UserResponse{
			UserID:       userID,
			QuestionID:   question.ID,
			TournamentID: tournamentID,
			AnswerIndex:  sub.AnswerIndex,
			IsCorrect:    question.CorrectAnswer == sub.AnswerIndex,
			TimeTaken:    timeTaken,
			CreatedAt:    now,
		}
		if err := repos.Responses.Save(ctx, &response); err != nil {
			return err
		}

		result = AnswerResult{
			QuestionID:    question.ID,
			IsCorrect:     response.IsCorrect,
			CorrectAnswer: question.CorrectAnswer,
			TimeTaken:     timeTaken,
		}
		return nil
	})
	if err != nil {
		return AnswerResult{}, err
	}
	return result, nil
}

// FinishAttempt aggregates the stored responses into the participant's score
// and marks the attempt done. Calling it again recomputes the same values.
// Scores are frozen once results are published.
func (s *AttemptService) FinishAttempt(ctx context.Context, userID, tournamentID int64) (FinishResult, error) {
	var result FinishResult
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos Repositories) error {
		// a share lock waits for an in-flight settlement to commit, so a
		// score can never land after the leaderboard was paid out
		tournament, err := repos.Tournaments.GetForShare(ctx, tournamentID)
		if err != nil {
			return err
		}
		if tournament.ResultPublished {
			return domain.ErrAlreadyPublished
		}
		if _, err := eligibleParticipant(ctx, repos, userID, tournamentID); err != nil {
			return err
		}

		responses, err := repos.Responses.ListByUserAndTournament(ctx, userID, tournamentID)
		if err != nil {
			return err
		}
		score, timeTaken := Tally(responses)
		if err := repos.Participants.UpdateScore(ctx, userID, tournamentID, score, timeTaken); err != nil {
			return err
		}
		result = FinishResult{
			Score:          score,
			TotalQuestions: len(responses),
			Answered:       len(responses),
			TimeTaken:      timeTaken,
		}
		return nil
	})
	if err != nil {
		return FinishResult{}, err
	}

	if content, err := s.content.GetQuiz(ctx, tournamentID); err == nil && len(content.Questions) > 0 {
		result.TotalQuestions = len(content.Questions)
	}
	if s.tracker != nil {
		if err := s.tracker.End(ctx, tournamentID, userID); err != nil {
			s.logger.Warn("attempt tracker end", slog.Int64("tournament_id", tournamentID), slog.Any("error", err))
		}
	}

	s.logger.Info("attempt finished",
		slog.Int64("user_id", userID),
		slog.Int64("tournament_id", tournamentID),
		slog.Int("score", result.Score),
		slog.Int("time_taken", result.TimeTaken))
	return result, nil
}

// Tally counts correct responses and sums their time. The result does not
// depend on the order of responses.
func Tally(responses []domain.UserResponse) (score, timeTaken int) {
	for _, r := range responses {
		if r.IsCorrect {
			score++
		}
		timeTaken += r.TimeTaken
	}
	return score, timeTaken
}

func eligibleParticipant(ctx context.Context, repos Repositories, userID, tournamentID int64) (domain.Participant, error) {
	participant, err := repos.Participants.Get(ctx, userID, tournamentID)
	if err != nil {
		return domain.Participant{}, err
	}
	if !participant.Eligible() {
		return domain.Participant{}, domain.ErrNotJoined
	}
	return participant, nil
}
