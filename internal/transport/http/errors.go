package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"quiz-tournament-service/internal/domain"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrTournamentNotFound),
		errors.Is(err, domain.ErrQuizMissing),
		errors.Is(err, domain.ErrNoQuestions),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrNotJoined),
		errors.Is(err, domain.ErrResultsNotPublished),
		errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, domain.ErrAlreadyJoined),
		errors.Is(err, domain.ErrFull),
		errors.Is(err, domain.ErrAlreadyAttempted),
		errors.Is(err, domain.ErrDuplicateResponse),
		errors.Is(err, domain.ErrAlreadyPublished),
		errors.Is(err, domain.ErrQuizExists):
		return http.StatusConflict

	case errors.Is(err, domain.ErrInvalidTournament),
		errors.Is(err, domain.ErrInvalidQuestion):
		return http.StatusUnprocessableEntity

	case errors.Is(err, domain.ErrAlreadyStarted),
		errors.Is(err, domain.ErrNotStarted),
		errors.Is(err, domain.ErrEnded),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInvalidPaymentMethod),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidAnswer):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error": "..."}. Unexpected errors are logged
// and their text is not leaked.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		msg = "internal server error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("body must not be empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
