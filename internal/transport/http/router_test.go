package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"quiz-tournament-service/internal/app"
	"quiz-tournament-service/internal/domain"
	"quiz-tournament-service/internal/infra/memory"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type testServer struct {
	*httptest.Server
	t     *testing.T
	clock *testClock
	store *memory.Store
	auth  *Authenticator
	svc   Services
	admin string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := []app.Option{app.WithClock(clock.Now), app.WithLogger(logger)}

	store := memory.NewStore()
	content := memory.NewContentRepository(app.NewStoreQuizLoader(store), time.Minute)
	tracker := memory.NewAttemptTracker(clock.Now)
	hub := app.NewResultsHub()
	svc := Services{
		Catalog:     app.NewCatalogService(store, content, opts...),
		Join:        app.NewJoinService(store, opts...),
		Attempts:    app.NewAttemptService(store, content, tracker, nil, opts...),
		Settlement:  app.NewSettlementService(store, hub, nil, opts...),
		Leaderboard: app.NewLeaderboardService(store, opts...),
		Ledger:      app.NewLedger(store, opts...),
		Stats:       app.NewStatsService(store, tracker, opts...),
		Hub:         hub,
	}
	auth := NewAuthenticator("test-secret")
	srv := httptest.NewServer(NewRouter(svc, auth, logger))
	t.Cleanup(srv.Close)

	ts := &testServer{Server: srv, t: t, clock: clock, store: store, auth: auth, svc: svc}
	admin := store.AddUser(domain.User{Username: "admin", IsAdmin: true})
	ts.admin = ts.token(admin.ID, true)
	return ts
}

func (s *testServer) token(userID int64, isAdmin bool) string {
	s.t.Helper()
	tok, err := s.auth.IssueToken(userID, isAdmin, time.Hour)
	if err != nil {
		s.t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (s *testServer) player(name string, wallet int64) (domain.User, string) {
	u := s.store.AddUser(domain.User{Username: name, Wallet: decimal.NewFromInt(wallet)})
	return u, s.token(u.ID, false)
}

// do sends body as JSON and decodes the response into out when out is not nil.
func (s *testServer) do(method, path, token string, body, out any) int {
	s.t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, rd)
	if err != nil {
		s.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			s.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

// seed creates a published tournament with two questions through the admin
// API. Answer index 1 is correct.
func (s *testServer) seed(fee, pool int64) domain.Tournament {
	s.t.Helper()
	now := s.clock.Now()
	var tour domain.Tournament
	code := s.do(http.MethodPost, "/api/admin/tournaments", s.admin, tournamentRequest{
		Name:        "Lunch Quiz",
		EntryFee:    decimal.NewFromInt(fee),
		PrizePool:   decimal.NewFromInt(pool),
		TotalSlots:  10,
		StartTime:   now.Add(time.Hour),
		EndTime:     now.Add(2 * time.Hour),
		IsPublished: true,
	}, &tour)
	if code != http.StatusCreated {
		s.t.Fatalf("create tournament: status %d", code)
	}
	base := fmt.Sprintf("/api/admin/tournaments/%d", tour.ID)
	if code := s.do(http.MethodPost, base+"/quiz", s.admin, quizRequest{Title: "Warmup"}, nil); code != http.StatusCreated {
		s.t.Fatalf("create quiz: status %d", code)
	}
	for i := 0; i < 2; i++ {
		code := s.do(http.MethodPost, base+"/questions", s.admin, questionRequest{
			Question:      fmt.Sprintf("Q%d", i+1),
			Options:       []string{"a", "b", "c"},
			CorrectAnswer: 1,
			Timer:         10,
		}, nil)
		if code != http.StatusCreated {
			s.t.Fatalf("add question: status %d", code)
		}
	}
	return tour
}

func TestTournamentFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	tour := s.seed(100, 1000)
	base := fmt.Sprintf("/api/tournaments/%d", tour.ID)

	alice, aliceTok := s.player("alice", 150)
	_, bobTok := s.player("bob", 150)

	var joined app.JoinResult
	if code := s.do(http.MethodPost, base+"/join", aliceTok, joinRequest{Method: domain.MethodWallet}, &joined); code != http.StatusOK {
		t.Fatalf("join: status %d", code)
	}
	if joined.Participant.PaymentStatus != domain.PaymentCompleted || !strings.HasPrefix(joined.Payment.TransactionID, "tx-") {
		t.Fatalf("unexpected join result %+v", joined)
	}
	if code := s.do(http.MethodPost, base+"/join", aliceTok, joinRequest{Method: domain.MethodWallet}, nil); code != http.StatusConflict {
		t.Fatalf("expected 409 on second join, got %d", code)
	}
	if code := s.do(http.MethodPost, base+"/join", bobTok, joinRequest{Method: "cash"}, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown method, got %d", code)
	}

	var wallet walletResponse
	s.do(http.MethodGet, "/api/wallet", aliceTok, nil, &wallet)
	if !wallet.Balance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected balance 50 after join, got %s", wallet.Balance)
	}

	if code := s.do(http.MethodPost, base+"/attempt/start", aliceTok, nil, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 before start, got %d", code)
	}
	s.clock.Set(tour.StartTime.Add(time.Minute))

	var raw map[string]json.RawMessage
	if code := s.do(http.MethodPost, base+"/attempt/start", aliceTok, nil, &raw); code != http.StatusOK {
		t.Fatalf("start: status %d", code)
	}
	if strings.Contains(string(raw["questions"]), "correctAnswer") {
		t.Fatalf("questions leak answers: %s", raw["questions"])
	}
	var questions []domain.PublicQuestion
	if err := json.Unmarshal(raw["questions"], &questions); err != nil || len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %s (%v)", raw["questions"], err)
	}
	if code := s.do(http.MethodPost, base+"/attempt/start", bobTok, nil, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 for non participant, got %d", code)
	}

	var answer app.AnswerResult
	sub := app.AnswerSubmission{QuestionID: questions[0].ID, AnswerIndex: 1, TimeTaken: 4}
	if code := s.do(http.MethodPost, base+"/attempt/answer", aliceTok, sub, &answer); code != http.StatusOK {
		t.Fatalf("answer: status %d", code)
	}
	if !answer.IsCorrect || answer.CorrectAnswer != 1 {
		t.Fatalf("unexpected answer result %+v", answer)
	}
	if code := s.do(http.MethodPost, base+"/attempt/answer", aliceTok, sub, nil); code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate answer, got %d", code)
	}

	var finish app.FinishResult
	if code := s.do(http.MethodPost, base+"/attempt/finish", aliceTok, nil, &finish); code != http.StatusOK {
		t.Fatalf("finish: status %d", code)
	}
	if finish.Score != 1 || finish.TotalQuestions != 2 || finish.TimeTaken != 4 {
		t.Fatalf("unexpected finish %+v", finish)
	}

	if code := s.do(http.MethodGet, base+"/leaderboard", aliceTok, nil, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 before results, got %d", code)
	}
	if code := s.do(http.MethodGet, base+"/leaderboard", s.admin, nil, nil); code != http.StatusOK {
		t.Fatalf("expected admin preview, got %d", code)
	}

	results := fmt.Sprintf("/api/admin/tournaments/%d/results", tour.ID)
	if code := s.do(http.MethodPost, results, s.admin, nil, nil); code != http.StatusOK {
		t.Fatalf("publish results: status %d", code)
	}
	if code := s.do(http.MethodPost, results, s.admin, nil, nil); code != http.StatusConflict {
		t.Fatalf("expected 409 on second publish, got %d", code)
	}

	var lb domain.Leaderboard
	if code := s.do(http.MethodGet, base+"/leaderboard", "", nil, &lb); code != http.StatusOK {
		t.Fatalf("public leaderboard: status %d", code)
	}
	if !lb.Published || len(lb.Entries) != 1 || lb.Entries[0].UserID != alice.ID {
		t.Fatalf("unexpected leaderboard %+v", lb)
	}
	if !lb.Entries[0].Prize.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected prize 500, got %s", lb.Entries[0].Prize)
	}

	var winners []app.Winner
	s.do(http.MethodGet, "/api/winners/recent", "", nil, &winners)
	if len(winners) != 1 || winners[0].TournamentName != "Lunch Quiz" {
		t.Fatalf("unexpected winners %+v", winners)
	}

	s.do(http.MethodGet, "/api/wallet", aliceTok, nil, &wallet)
	if !wallet.Balance.Equal(decimal.NewFromInt(550)) {
		t.Fatalf("expected balance 550 after payout, got %s", wallet.Balance)
	}
}

func TestWalletDeposit(t *testing.T) {
	s := newTestServer(t)
	_, tok := s.player("carol", 10)

	var wallet walletResponse
	if code := s.do(http.MethodPost, "/api/wallet/deposit", tok, map[string]any{"amount": "15.50"}, &wallet); code != http.StatusOK {
		t.Fatalf("deposit: status %d", code)
	}
	if !wallet.Balance.Equal(decimal.RequireFromString("25.50")) {
		t.Fatalf("expected 25.50, got %s", wallet.Balance)
	}
	if code := s.do(http.MethodPost, "/api/wallet/deposit", tok, map[string]any{"amount": "0"}, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero deposit, got %d", code)
	}
	if code := s.do(http.MethodPost, "/api/wallet/deposit", tok, map[string]any{"amount": "1", "extra": true}, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", code)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	resp, err := http.Get(s.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected health response %d %q", resp.StatusCode, body)
	}
}

func TestAuthGuards(t *testing.T) {
	s := newTestServer(t)
	_, userTok := s.player("dave", 0)

	expired := NewAuthenticator("test-secret")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	oldTok, err := expired.IssueToken(1, true, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	forged, err := NewAuthenticator("other-secret").IssueToken(1, true, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	cases := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{"anonymous wallet", "/api/wallet", "", http.StatusUnauthorized},
		{"expired token", "/api/wallet", oldTok, http.StatusUnauthorized},
		{"wrong secret", "/api/wallet", forged, http.StatusUnauthorized},
		{"player on admin route", "/api/admin/stats", userTok, http.StatusForbidden},
		{"admin stats", "/api/admin/stats", s.admin, http.StatusOK},
		{"public list", "/api/tournaments", "", http.StatusOK},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := s.do(http.MethodGet, c.path, c.token, nil, nil); got != c.want {
				t.Fatalf("GET %s: got %d, want %d", c.path, got, c.want)
			}
		})
	}
}

func TestUserIDClaim(t *testing.T) {
	cases := []struct {
		raw     any
		want    int64
		wantErr bool
	}{
		{float64(7), 7, false},
		{"12", 12, false},
		{float64(1.5), 0, true},
		{"abc", 0, true},
		{nil, 0, true},
		{true, 0, true},
	}
	for _, c := range cases {
		got, err := userIDClaim(map[string]any{claimUserID: c.raw})
		if (err != nil) != c.wantErr || got != c.want {
			t.Fatalf("userIDClaim(%v) = %d, %v", c.raw, got, err)
		}
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrTournamentNotFound, http.StatusNotFound},
		{domain.ErrNoQuestions, http.StatusNotFound},
		{domain.ErrNotJoined, http.StatusForbidden},
		{domain.ErrFull, http.StatusConflict},
		{domain.ErrAlreadyPublished, http.StatusConflict},
		{domain.ErrEnded, http.StatusBadRequest},
		{domain.ErrInsufficientBalance, http.StatusBadRequest},
		{fmt.Errorf("%w: timer 12s not allowed", domain.ErrInvalidQuestion), http.StatusUnprocessableEntity},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := statusFor(c.err); got != c.want {
			t.Fatalf("statusFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestAdminValidation(t *testing.T) {
	s := newTestServer(t)
	now := s.clock.Now()
	code := s.do(http.MethodPost, "/api/admin/tournaments", s.admin, tournamentRequest{
		Name:       "Backwards",
		TotalSlots: 5,
		StartTime:  now.Add(2 * time.Hour),
		EndTime:    now.Add(time.Hour),
	}, nil)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
	if code := s.do(http.MethodGet, "/api/tournaments/999", "", nil, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	if code := s.do(http.MethodGet, "/api/tournaments/abc", "", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}
