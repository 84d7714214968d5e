package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"quiz-tournament-service/internal/app"
)

// Services are the use cases the HTTP layer exposes.
type Services struct {
	Catalog     *app.CatalogService
	Join        *app.JoinService
	Attempts    *app.AttemptService
	Settlement  *app.SettlementService
	Leaderboard *app.LeaderboardService
	Ledger      *app.Ledger
	Stats       *app.StatsService
	Hub         *app.ResultsHub
}

// NewRouter builds the REST API and the results websocket.
func NewRouter(svc Services, auth *Authenticator, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{svc: svc, logger: logger}
	feed := NewResultsFeed(svc.Hub, svc.Leaderboard, logger)

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", h.health)

	router.Route("/api", func(r chi.Router) {
		r.Get("/winners/recent", h.recentWinners)

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.listTournaments)
			r.Get("/live", h.liveTournaments)
			r.Get("/upcoming", h.upcomingTournaments)
			r.Get("/{id}", h.withTournament(h.getTournament))
			r.With(auth.Optional).Get("/{id}/leaderboard", h.withTournament(h.leaderboard))

			r.Group(func(r chi.Router) {
				r.Use(auth.Require)
				r.Post("/{id}/join", h.withTournament(h.join))
				r.Post("/{id}/attempt/start", h.withTournament(h.startAttempt))
				r.Post("/{id}/attempt/answer", h.withTournament(h.submitAnswer))
				r.Post("/{id}/attempt/finish", h.withTournament(h.finishAttempt))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Require)
			r.Get("/wallet", h.wallet)
			r.Post("/wallet/deposit", h.deposit)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.Require)
			r.Use(RequireAdmin)
			r.Get("/stats", h.stats)
			r.Post("/tournaments", h.createTournament)
			r.Put("/tournaments/{id}", h.withTournament(h.updateTournament))
			r.Post("/tournaments/{id}/publish", h.withTournament(h.publishTournament))
			r.Post("/tournaments/{id}/quiz", h.withTournament(h.createQuiz))
			r.Post("/tournaments/{id}/questions", h.withTournament(h.addQuestion))
			r.Post("/tournaments/{id}/results", h.withTournament(h.publishResults))
			r.Get("/tournaments/{id}/participants", h.withTournament(h.participants))
		})
	})

	router.Get("/ws/tournaments/{id}/results", feed.ServeWS)
	return router
}
