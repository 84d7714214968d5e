package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"quiz-tournament-service/internal/app"
	"quiz-tournament-service/internal/domain"
)

type handlers struct {
	svc    Services
	logger *slog.Logger
}

type joinRequest struct {
	Method domain.PaymentMethod `json:"method"`
}

type depositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type walletResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

type tournamentRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	EntryFee    decimal.Decimal `json:"entryFee"`
	PrizePool   decimal.Decimal `json:"prizePool"`
	TotalSlots  int             `json:"totalSlots"`
	StartTime   time.Time       `json:"startTime"`
	EndTime     time.Time       `json:"endTime"`
	IsPublished bool            `json:"isPublished"`
}

func (req tournamentRequest) toDomain() domain.Tournament {
	return domain.Tournament{
		Name:        req.Name,
		Description: req.Description,
		EntryFee:    req.EntryFee,
		PrizePool:   req.PrizePool,
		TotalSlots:  req.TotalSlots,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsPublished: req.IsPublished,
	}
}

type quizRequest struct {
	Title string `json:"title"`
}

type questionRequest struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Timer         int      `json:"timer"`
}

func tournamentID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid tournament id")
	}
	return id, nil
}

func (h *handlers) badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
}

// withTournament parses the {id} path parameter before calling fn.
func (h *handlers) withTournament(fn func(w http.ResponseWriter, r *http.Request, id int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := tournamentID(r)
		if err != nil {
			h.badRequest(w, err)
			return
		}
		fn(w, r, id)
	}
}

func (h *handlers) respond(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, status, v)
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

func (h *handlers) listTournaments(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Catalog.List(r.Context())
	h.respond(w, r, http.StatusOK, list, err)
}

func (h *handlers) liveTournaments(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Catalog.Live(r.Context())
	h.respond(w, r, http.StatusOK, list, err)
}

func (h *handlers) upcomingTournaments(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Catalog.Upcoming(r.Context())
	h.respond(w, r, http.StatusOK, list, err)
}

func (h *handlers) getTournament(w http.ResponseWriter, r *http.Request, id int64) {
	t, err := h.svc.Catalog.Get(r.Context(), id)
	h.respond(w, r, http.StatusOK, t, err)
}

func (h *handlers) leaderboard(w http.ResponseWriter, r *http.Request, id int64) {
	caller, _ := IdentityFrom(r.Context())
	lb, err := h.svc.Leaderboard.Leaderboard(r.Context(), id, caller.IsAdmin)
	h.respond(w, r, http.StatusOK, lb, err)
}

func (h *handlers) recentWinners(w http.ResponseWriter, r *http.Request) {
	winners, err := h.svc.Leaderboard.RecentWinners(r.Context())
	h.respond(w, r, http.StatusOK, winners, err)
}

func (h *handlers) join(w http.ResponseWriter, r *http.Request, id int64) {
	var req joinRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	caller, _ := IdentityFrom(r.Context())
	res, err := h.svc.Join.JoinTournament(r.Context(), caller.UserID, id, req.Method)
	h.respond(w, r, http.StatusOK, res, err)
}

func (h *handlers) startAttempt(w http.ResponseWriter, r *http.Request, id int64) {
	caller, _ := IdentityFrom(r.Context())
	res, err := h.svc.Attempts.StartAttempt(r.Context(), caller.UserID, id)
	h.respond(w, r, http.StatusOK, res, err)
}

func (h *handlers) submitAnswer(w http.ResponseWriter, r *http.Request, id int64) {
	var req app.AnswerSubmission
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	caller, _ := IdentityFrom(r.Context())
	res, err := h.svc.Attempts.SubmitAnswer(r.Context(), caller.UserID, id, req)
	h.respond(w, r, http.StatusOK, res, err)
}

func (h *handlers) finishAttempt(w http.ResponseWriter, r *http.Request, id int64) {
	caller, _ := IdentityFrom(r.Context())
	res, err := h.svc.Attempts.FinishAttempt(r.Context(), caller.UserID, id)
	h.respond(w, r, http.StatusOK, res, err)
}

func (h *handlers) wallet(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFrom(r.Context())
	balance, err := h.svc.Ledger.Balance(r.Context(), caller.UserID)
	h.respond(w, r, http.StatusOK, walletResponse{Balance: balance}, err)
}

func (h *handlers) deposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	caller, _ := IdentityFrom(r.Context())
	balance, err := h.svc.Ledger.Deposit(r.Context(), caller.UserID, req.Amount)
	h.respond(w, r, http.StatusOK, walletResponse{Balance: balance}, err)
}

func (h *handlers) createTournament(w http.ResponseWriter, r *http.Request) {
	var req tournamentRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	t, err := h.svc.Catalog.CreateTournament(r.Context(), req.toDomain())
	h.respond(w, r, http.StatusCreated, t, err)
}

func (h *handlers) updateTournament(w http.ResponseWriter, r *http.Request, id int64) {
	var req tournamentRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	t := req.toDomain()
	t.ID = id
	updated, err := h.svc.Catalog.UpdateTournament(r.Context(), t)
	h.respond(w, r, http.StatusOK, updated, err)
}

func (h *handlers) publishTournament(w http.ResponseWriter, r *http.Request, id int64) {
	t, err := h.svc.Catalog.PublishTournament(r.Context(), id)
	h.respond(w, r, http.StatusOK, t, err)
}

func (h *handlers) createQuiz(w http.ResponseWriter, r *http.Request, id int64) {
	var req quizRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	quiz, err := h.svc.Catalog.CreateQuiz(r.Context(), id, req.Title)
	h.respond(w, r, http.StatusCreated, quiz, err)
}

func (h *handlers) addQuestion(w http.ResponseWriter, r *http.Request, id int64) {
	var req questionRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	q, err := h.svc.Catalog.AddQuestion(r.Context(), id, domain.Question{
		Text:          req.Question,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		Timer:         req.Timer,
	})
	h.respond(w, r, http.StatusCreated, q, err)
}

func (h *handlers) publishResults(w http.ResponseWriter, r *http.Request, id int64) {
	settlement, err := h.svc.Settlement.PublishResults(r.Context(), id)
	h.respond(w, r, http.StatusOK, settlement, err)
}

func (h *handlers) participants(w http.ResponseWriter, r *http.Request, id int64) {
	list, err := h.svc.Catalog.Participants(r.Context(), id)
	h.respond(w, r, http.StatusOK, list, err)
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats.Stats(r.Context())
	h.respond(w, r, http.StatusOK, stats, err)
}
