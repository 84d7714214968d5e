package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"quiz-tournament-service/internal/app"
	"quiz-tournament-service/internal/domain"
)

func TestStartAttemptPreconditions(t *testing.T) {
	f := newFixture(t)
	tour := f.tournament(t, 0, 100, 5)
	ana := f.user(t, "ana", 0)
	bob := f.user(t, "bob", 0)
	f.mustJoin(t, ana.ID, tour, domain.MethodUPI)
	ctx := context.Background()

	if _, err := f.attempt.StartAttempt(ctx, ana.ID, tour.ID); !errors.Is(err, domain.ErrNotStarted) {
		t.Fatalf("expected not started, got %v", err)
	}

	f.goLive(tour)
	if _, err := f.attempt.StartAttempt(ctx, bob.ID, tour.ID); !errors.Is(err, domain.ErrNotJoined) {
		t.Fatalf("expected not joined, got %v", err)
	}
	if _, err := f.attempt.StartAttempt(ctx, ana.ID, 404); !errors.Is(err, domain.ErrTournamentNotFound) {
		t.Fatalf("expected tournament not found, got %v", err)
	}

	f.now = tour.EndTime.Add(time.Second)
	if _, err := f.attempt.StartAttempt(ctx, ana.ID, tour.ID); !errors.Is(err, domain.ErrEnded) {
		t.Fatalf("expected ended, got %v", err)
	}
}

func TestStartAttemptLiveWindowIsInclusive(t *testing.T) {
	f := newFixture(t)
	tour := f.tournament(t, 0, 100, 5)
	ana := f.user(t, "ana", 0)
	f.mustJoin(t, ana.ID, tour, domain.MethodUPI)

	for _, at := range []time.Time{tour.StartTime, tour.EndTime} {
		f.now = at
		if _, err := f.attempt.StartAttempt(context.Background(), ana.ID, tour.ID); err != nil {
			t.Fatalf("start at %v: %v", at, err)
		}
	}
}

func TestStartAttemptRedactsAnswers(t *testing.T) {
	f := newFixture(t)
	tour := f.tournament(t, 0, 100, 5)
	ana := f.user(t, "ana", 0)
	f.mustJoin(t, ana.ID, tour, domain.MethodUPI)
	f.goLive(tour)

	res, err := f.attempt.StartAttempt(context.Background(), ana.ID, tour.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.TotalQuestions != 5 || len(res.Questions) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(res.Questions))
	}
	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "correctAnswer") {
		t.Fatalf("start payload leaks answers: %s", raw)
	}

	again, err := f.attempt.StartAttempt(context.Background(), ana.ID, tour.ID)
	if err != nil {
		t.Fatalf("start again: %v", err)
	}
	for i := range res.Questions {
		if again.Questions[i].ID != res.Questions[i].ID {
			t.Fatalf("question order changed at %d", i)
		}
	}
	if !again.StartedAt.Equal(res.StartedAt) {
		t.Fatalf("expected start time to be kept across calls")
	}
}

func TestStartAttemptWithoutQuestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tour, err := f.catalog.CreateTournament(ctx, domain.Tournament{
		Name: "Empty", TotalSlots: 2, EntryFee: dec(0), PrizePool: dec(0),
		StartTime: f.now.Add(time.Hour), EndTime: f.now.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	ana := f.user(t, "ana", 0)
	f.mustJoin(t, ana.ID, tour, domain.MethodUPI)
	f.goLive(tour)

	if _, err := f.attempt.StartAttempt(ctx, ana.ID, tour.ID); !errors.Is(err, domain.ErrQuizMissing) {
		t.Fatalf("expected quiz missing, got %v", err)
	}
	if _, err := f.catalog.CreateQuiz(ctx, tour.ID, "Empty quiz"); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if _, err := f.attempt.StartAttempt(ctx, ana.ID, tour.ID); !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected no questions, got %v", err)
	}
}

func TestSubmitAnswerScoring(t *testing.T) {
	f := newFixture(t)
	tour := f.tournament(t, 0, 100, 5)
	ana := f.user(t, "ana", 0)
	f.mustJoin(t, ana.ID, tour, domain.MethodUPI)
	f.goLive(tour)
	ctx := context.Background()

	start, err := f.attempt.StartAttempt(ctx, ana.ID, tour.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	q0, q1 := start.Questions[0], start.Questions[1]

	res, err := f.attempt.SubmitAnswer(ctx, ana.ID, tour.ID, app.AnswerSubmission{QuestionID: q0.ID, AnswerIndex: 0, TimeTaken: 4})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.IsCorrect || res.CorrectAnswer != 0 || res.TimeTaken != 4 {
		t.Fatalf("unexpected result %+v", res)
	}

	_, err = f.attempt.SubmitAnswer(ctx, ana.ID, tour.ID, app.AnswerSubmission{QuestionID: q0.ID, AnswerIndex: 0, TimeTaken: 4})
	if !errors.Is(err, domain.ErrDuplicateResponse) {
		t.Fatalf("expected duplicate response, got %v", err)
	}

	// timer expiry: no selection, clamped to the question timer
	res, err = f.attempt.SubmitAnswer(ctx, ana.ID, tour.ID, app.AnswerSubmission{QuestionID: q1.ID, AnswerIndex: domain.NoAnswer, TimeTaken: 99})
	if err != nil {
		t.Fatalf("submit timeout: %v", err)
	}
	if res.IsCorrect || res.TimeTaken != q1.Timer {
		t.Fatalf("unexpected timeout result %+v", res)
	}

	if _, err := f.attempt.SubmitAnswer(ctx, ana.ID, tour.ID, app.AnswerSubmission{QuestionID: start.Questions[2].ID, AnswerIndex: 7}); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("expected invalid answer, got %v", err)
	}
	if _, err := f.attempt.SubmitAnswer(ctx, ana.ID, tour.ID, app.AnswerSubmission{QuestionID: 123456}); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}

	fin, err := f.attempt.FinishAttempt(ctx, ana.ID, tour.ID)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if fin.Score != 1 || fin.TimeTaken != 4+q1.Timer || fin.Answered != 2 || fin.TotalQuestions != 5 {
		t.Fatalf("unexpected finish %+v", fin)
	}
}

func TestSubmitAnswerRejectsQuestionFromAnotherQuiz(t *testing.T) {
	f := newFixture(t)
	first := f.tournament(t, 0, 100, 5)
	second := f.tournament(t, 0, 100, 5)
	ana := f.user(t, "ana", 0)
	f.mustJoin(t, ana.ID, first, domain.MethodUPI)
	f.goLive(first)
	ctx := context.Background()

	other, err := f.content.GetQuiz(ctx, second.ID)
	if err != nil {
		t.Fatalf("load other quiz: %v", err)
	}
	_, err = f.attempt.SubmitAnswer(ctx, ana.ID, first.ID, app.AnswerSubmission{QuestionID: other.Questions[0].ID, AnswerIndex: 0})
	if !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
}

func TestScoreIndependentOfSubmissionOrder(t *testing.T) {
	f := newFixture(t)
	tour := f.tournament(t, 0, 100, 5)
	ana := f.user(t, "ana", 0)
	bob := f.user(t, "bob", 0)
	f.mustJoin(t, ana.ID, tour, domain.MethodUPI)
	f.mustJoin(t, bob.ID, tour, domain.MethodUPI)
	f.goLive(tour)
	ctx := context.Background()

	start, err := f.attempt.StartAttempt(ctx, ana.ID, tour.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	answers := []int{0, 1, 0, 0, 2}
	times := []int{3, 5, 7, 11, 13}

	submit := func(userID int64, order []int) app.FinishResult {
		for _, i := range order {
			_, err := f.attempt.SubmitAnswer(ctx, userID, tour.ID, app.AnswerSubmission{
				QuestionID:  start.Questions[i].ID,
				AnswerIndex: answers[i],
				TimeTaken:   times[i],
			})
			if err != nil {
				t.Fatalf("submit %d: %v", i, err)
			}
		}
		res, err := f.attempt.FinishAttempt(ctx, userID, tour.ID)
		if err != nil {
			t.Fatalf("finish: %v", err)
		}
		return res
	}

	forward := submit(ana.ID, []int{0, 1, 2, 3, 4})
	backward := submit(bob.ID, []int{4, 3, 2, 1, 0})
	if forward.Score != 3 || forward.TimeTaken != 39 {
		t.Fatalf("unexpected score %+v", forward)
	}
	if forward != backward {
		t.Fatalf("order changed the result: %+v vs %+v", forward, backward)
	}
}

func TestAttemptIsSingleUse(t *testing.T) {
	f := newFixture(t)
	tour := f.tournament(t, 0, 100, 5)
	ana := f.user(t, "ana", 0)
	f.mustJoin(t, ana.ID, tour, domain.MethodUPI)
	f.goLive(tour)
	ctx := context.Background()

	first := f.play(t, ana.ID, tour, 4, 5)

	if _, err := f.attempt.StartAttempt(ctx, ana.ID, tour.ID); !errors.Is(err, domain.ErrAlreadyAttempted) {
		t.Fatalf("expected already attempted on start, got %v", err)
	}
	_, err := f.attempt.SubmitAnswer(ctx, ana.ID, tour.ID, app.AnswerSubmission{QuestionID: 1, AnswerIndex: 0})
	if !errors.Is(err, domain.ErrAlreadyAttempted) {
		t.Fatalf("expected already attempted on submit, got %v", err)
	}

	again, err := f.attempt.FinishAttempt(ctx, ana.ID, tour.ID)
	if err != nil {
		t.Fatalf("finish again: %v", err)
	}
	if again != first {
		t.Fatalf("expected identical recompute, got %+v vs %+v", again, first)
	}
	if p := f.participant(t, ana.ID, tour.ID); !p.HasAttempted || p.Score != 4 || p.TimeTaken != 25 {
		t.Fatalf("unexpected participant %+v", p)
	}
	if n, _ := f.tracker.Active(ctx, tour.ID); n != 0 {
		t.Fatalf("expected attempt to be cleared from tracker, got %d", n)
	}
}

func TestFinishAttemptAfterSettlementRejected(t *testing.T) {
	f := newFixture(t)
	tour := f.tournament(t, 0, 100, 5)
	ana := f.user(t, "ana", 0)
	f.mustJoin(t, ana.ID, tour, domain.MethodUPI)
	f.goLive(tour)
	f.play(t, ana.ID, tour, 5, 5)

	if _, err := f.settlement.PublishResults(context.Background(), tour.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := f.attempt.FinishAttempt(context.Background(), ana.ID, tour.ID); !errors.Is(err, domain.ErrAlreadyPublished) {
		t.Fatalf("expected already published, got %v", err)
	}
}

func TestTally(t *testing.T) {
	score, total := app.Tally([]domain.UserResponse{
		{IsCorrect: true, TimeTaken: 10},
		{IsCorrect: false, TimeTaken: 15},
		{IsCorrect: true, TimeTaken: 5},
	})
	if score != 2 || total != 30 {
		t.Fatalf("expected 2/30, got %d/%d", score, total)
	}
}
