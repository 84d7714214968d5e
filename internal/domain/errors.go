package domain

import "errors"

var (
	// ErrTournamentNotFound is returned when a tournament id does not resolve.
	ErrTournamentNotFound = errors.New("tournament not found")
	// ErrQuizMissing indicates the tournament has no quiz attached.
	ErrQuizMissing = errors.New("quiz not found for this tournament")
	// ErrNoQuestions indicates the quiz exists but has no questions.
	ErrNoQuestions = errors.New("no questions found for this quiz")
	// ErrQuestionNotFound indicates a submitted question id is not part of the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrUserNotFound is returned when a wallet owner does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrNotJoined is returned when the participant has not completed payment.
	ErrNotJoined = errors.New("you must join this tournament first")
	// ErrAlreadyJoined is returned on a second join with completed payment.
	ErrAlreadyJoined = errors.New("you have already joined this tournament")
	// ErrFull is returned when every slot is taken.
	ErrFull = errors.New("tournament is full")
	// ErrAlreadyStarted is returned when joining at or after the start time.
	ErrAlreadyStarted = errors.New("tournament has already started")
	ErrNotStarted     = errors.New("tournament has not started yet")
	ErrEnded          = errors.New("tournament has already ended")
	// ErrAlreadyAttempted guards the one-shot attempt.
	ErrAlreadyAttempted = errors.New("you have already attempted this quiz")

	ErrInsufficientBalance  = errors.New("insufficient wallet balance")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidAmount        = errors.New("invalid amount")

	// ErrDuplicateResponse is the uniqueness violation on (user, question, tournament).
	ErrDuplicateResponse = errors.New("answer already submitted for this question")
	ErrInvalidAnswer     = errors.New("answer index out of range")

	// ErrAlreadyPublished guards settlement and freezes results.
	ErrAlreadyPublished    = errors.New("tournament results already published")
	ErrResultsNotPublished = errors.New("results have not been published yet")

	ErrInvalidTournament = errors.New("invalid tournament")
	ErrInvalidQuestion   = errors.New("invalid question")
	ErrQuizExists        = errors.New("tournament already has a quiz")
	ErrForbidden         = errors.New("operation not allowed for the current user")
)
