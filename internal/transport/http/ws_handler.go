package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"quiz-tournament-service/internal/app"
	"quiz-tournament-service/internal/domain"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second
)

// ResultsFeed streams a tournament's final leaderboard to websocket clients
// once its results are published.
type ResultsFeed struct {
	hub         *app.ResultsHub
	leaderboard *app.LeaderboardService
	logger      *slog.Logger
	upgrader    websocket.Upgrader
	pongWait    time.Duration
	pingPeriod  time.Duration
}

func NewResultsFeed(hub *app.ResultsHub, leaderboard *app.LeaderboardService, logger *slog.Logger) *ResultsFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultsFeed{
		hub:         hub,
		leaderboard: leaderboard,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pongWait:   pongWait,
		pingPeriod: pingPeriod,
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type subscribedPayload struct {
	TournamentID int64 `json:"tournamentId"`
	Published    bool  `json:"published"`
}

// ServeWS sends a "subscribed" message, then a single "results" message
// carrying the leaderboard, and closes. If the results are already out they
// are sent right away.
func (f *ResultsFeed) ServeWS(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	// subscribe before reading the current state so a publish in between is
	// not lost
	updates, cancel := f.hub.Subscribe(id)
	defer cancel()

	current, err := f.leaderboard.Leaderboard(r.Context(), id, true)
	if err != nil {
		writeError(w, r, f.logger, err)
		return
	}

	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("ws upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 2)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(f.pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-send:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(msg); err != nil {
					f.logger.Warn("ws write failed", slog.Int64("tournament_id", id), slog.Any("error", err))
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	// clients have nothing to say; reading only notices when they go away or
	// stop answering pings
	closeSignals := make(chan struct{})
	go func() {
		defer close(closeSignals)
		_ = conn.SetReadDeadline(time.Now().Add(f.pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(f.pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "subscribed", Payload: subscribedPayload{TournamentID: id, Published: current.Published}}

	var final *domain.Leaderboard
	if current.Published {
		final = &current
	} else {
		select {
		case lb, ok := <-updates:
			if ok {
				final = &lb
			}
		case <-closeSignals:
		case <-r.Context().Done():
		}
	}
	if final != nil {
		send <- outboundMessage[any]{Type: "results", Payload: *final}
	}

	close(send)
	<-writerDone
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}
