package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"quiz-tournament-service/internal/app"
	"quiz-tournament-service/internal/domain"
)

// Store is an in-memory app.Store. Each transaction works on a copy of the
// data and swaps it in on success, so a failed fn leaves nothing behind.
// Transactions are serialized by a single mutex.
type Store struct {
	mu   sync.Mutex
	data *dataset
}

func NewStore() *Store {
	return &Store{data: newDataset()}
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, repos app.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(ctx, work.repositories()); err != nil {
		return err
	}
	s.data = work
	return nil
}

// AddUser seeds a wallet owner and returns it with its assigned id.
func (s *Store) AddUser(u domain.User) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = (walletRepo{s.data}).Create(context.Background(), &u)
	return u
}

type participantKey struct {
	userID       int64
	tournamentID int64
}

type responseKey struct {
	userID       int64
	questionID   int64
	tournamentID int64
}

type dataset struct {
	seq          int64
	users        map[int64]domain.User
	tournaments  map[int64]domain.Tournament
	quizzes      map[int64]domain.Quiz
	questions    map[int64]domain.Question
	participants map[participantKey]domain.Participant
	responses    map[responseKey]domain.UserResponse
	payments     []domain.Payment
}

func newDataset() *dataset {
	return &dataset{
		users:        make(map[int64]domain.User),
		tournaments:  make(map[int64]domain.Tournament),
		quizzes:      make(map[int64]domain.Quiz),
		questions:    make(map[int64]domain.Question),
		participants: make(map[participantKey]domain.Participant),
		responses:    make(map[responseKey]domain.UserResponse),
	}
}

// clone copies every map. Stored values are never mutated in place, so a
// shallow copy of each value is enough.
func (d *dataset) clone() *dataset {
	c := &dataset{
		seq:          d.seq,
		users:        make(map[int64]domain.User, len(d.users)),
		tournaments:  make(map[int64]domain.Tournament, len(d.tournaments)),
		quizzes:      make(map[int64]domain.Quiz, len(d.quizzes)),
		questions:    make(map[int64]domain.Question, len(d.questions)),
		participants: make(map[participantKey]domain.Participant, len(d.participants)),
		responses:    make(map[responseKey]domain.UserResponse, len(d.responses)),
		payments:     make([]domain.Payment, len(d.payments)),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.tournaments {
		c.tournaments[k] = v
	}
	for k, v := range d.quizzes {
		c.quizzes[k] = v
	}
	for k, v := range d.questions {
		c.questions[k] = v
	}
	for k, v := range d.participants {
		c.participants[k] = v
	}
	for k, v := range d.responses {
		c.responses[k] = v
	}
	copy(c.payments, d.payments)
	return c
}

func (d *dataset) nextID() int64 {
	d.seq++
	return d.seq
}

func (d *dataset) repositories() app.Repositories {
	return app.Repositories{
		Tournaments:  tournamentRepo{d},
		Quizzes:      quizRepo{d},
		Questions:    questionRepo{d},
		Participants: participantRepo{d},
		Responses:    responseRepo{d},
		Wallets:      walletRepo{d},
		Payments:     paymentRepo{d},
	}
}

type tournamentRepo struct{ d *dataset }

func (r tournamentRepo) Get(_ context.Context, id int64) (domain.Tournament, error) {
	t, ok := r.d.tournaments[id]
	if !ok {
		return domain.Tournament{}, domain.ErrTournamentNotFound
	}
	return t, nil
}

// GetForUpdate needs no extra locking; the whole transaction holds the store
// mutex.
func (r tournamentRepo) GetForUpdate(ctx context.Context, id int64) (domain.Tournament, error) {
	return r.Get(ctx, id)
}

func (r tournamentRepo) GetForShare(ctx context.Context, id int64) (domain.Tournament, error) {
	return r.Get(ctx, id)
}

func (r tournamentRepo) List(_ context.Context) ([]domain.Tournament, error) {
	out := make([]domain.Tournament, 0, len(r.d.tournaments))
	for _, t := range r.d.tournaments {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r tournamentRepo) Create(_ context.Context, t *domain.Tournament) error {
	t.ID = r.d.nextID()
	r.d.tournaments[t.ID] = *t
	return nil
}

func (r tournamentRepo) Update(_ context.Context, t domain.Tournament) error {
	if _, ok := r.d.tournaments[t.ID]; !ok {
		return domain.ErrTournamentNotFound
	}
	r.d.tournaments[t.ID] = t
	return nil
}

func (r tournamentRepo) ClaimResultPublication(_ context.Context, id int64) (bool, error) {
	t, ok := r.d.tournaments[id]
	if !ok {
		return false, domain.ErrTournamentNotFound
	}
	if t.ResultPublished {
		return false, nil
	}
	t.ResultPublished = true
	r.d.tournaments[id] = t
	return true, nil
}

type quizRepo struct{ d *dataset }

func (r quizRepo) GetByTournament(_ context.Context, tournamentID int64) (domain.Quiz, error) {
	for _, q := range r.d.quizzes {
		if q.TournamentID == tournamentID {
			return q, nil
		}
	}
	return domain.Quiz{}, domain.ErrQuizMissing
}

func (r quizRepo) Create(ctx context.Context, q *domain.Quiz) error {
	if _, err := r.GetByTournament(ctx, q.TournamentID); err == nil {
		return domain.ErrQuizExists
	}
	q.ID = r.d.nextID()
	r.d.quizzes[q.ID] = *q
	return nil
}

type questionRepo struct{ d *dataset }

func (r questionRepo) Get(_ context.Context, id int64) (domain.Question, error) {
	q, ok := r.d.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (r questionRepo) ListByQuiz(_ context.Context, quizID int64) ([]domain.Question, error) {
	var out []domain.Question
	for _, q := range r.d.questions {
		if q.QuizID == quizID {
			out = append(out, q)
		}
	}
	// ids grow monotonically, so id order is insertion order
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r questionRepo) Create(_ context.Context, q *domain.Question) error {
	q.ID = r.d.nextID()
	stored := *q
	stored.Options = append([]string(nil), q.Options...)
	r.d.questions[q.ID] = stored
	return nil
}

type participantRepo struct{ d *dataset }

func (r participantRepo) Get(_ context.Context, userID, tournamentID int64) (domain.Participant, error) {
	p, ok := r.d.participants[participantKey{userID, tournamentID}]
	if !ok {
		return domain.Participant{}, domain.ErrNotJoined
	}
	return p, nil
}

// Upsert keeps the id and creation time of an existing row.
func (r participantRepo) Upsert(_ context.Context, p *domain.Participant) error {
	key := participantKey{p.UserID, p.TournamentID}
	if existing, ok := r.d.participants[key]; ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else {
		p.ID = r.d.nextID()
	}
	r.d.participants[key] = *p
	return nil
}

func (r participantRepo) CountCompleted(_ context.Context, tournamentID int64) (int, error) {
	n := 0
	for k, p := range r.d.participants {
		if k.tournamentID == tournamentID && p.Eligible() {
			n++
		}
	}
	return n, nil
}

func (r participantRepo) ListByTournament(_ context.Context, tournamentID int64) ([]domain.Participant, error) {
	var out []domain.Participant
	for k, p := range r.d.participants {
		if k.tournamentID == tournamentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r participantRepo) UpdateScore(_ context.Context, userID, tournamentID int64, score, timeTaken int) error {
	key := participantKey{userID, tournamentID}
	p, ok := r.d.participants[key]
	if !ok {
		return domain.ErrNotJoined
	}
	p.Score = score
	p.TimeTaken = timeTaken
	p.HasAttempted = true
	r.d.participants[key] = p
	return nil
}

func (r participantRepo) UpdatePrize(_ context.Context, userID, tournamentID int64, prize decimal.Decimal) error {
	key := participantKey{userID, tournamentID}
	p, ok := r.d.participants[key]
	if !ok {
		return domain.ErrNotJoined
	}
	p.Prize = prize
	r.d.participants[key] = p
	return nil
}

func (r participantRepo) ListWinners(_ context.Context, limit int) ([]domain.Participant, error) {
	var out []domain.Participant
	for _, p := range r.d.participants {
		if p.Prize.IsPositive() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Prize.Cmp(out[j].Prize); c != 0 {
			return c > 0
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type responseRepo struct{ d *dataset }

func (r responseRepo) Save(_ context.Context, resp *domain.UserResponse) error {
	key := responseKey{resp.UserID, resp.QuestionID, resp.TournamentID}
	if _, ok := r.d.responses[key]; ok {
		return domain.ErrDuplicateResponse
	}
	resp.ID = r.d.nextID()
	r.d.responses[key] = *resp
	return nil
}

func (r responseRepo) ListByUserAndTournament(_ context.Context, userID, tournamentID int64) ([]domain.UserResponse, error) {
	var out []domain.UserResponse
	for k, resp := range r.d.responses {
		if k.userID == userID && k.tournamentID == tournamentID {
			out = append(out, resp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type walletRepo struct{ d *dataset }

func (r walletRepo) Get(_ context.Context, userID int64) (domain.User, error) {
	u, ok := r.d.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (r walletRepo) Create(_ context.Context, u *domain.User) error {
	if u.ID == 0 {
		u.ID = r.d.nextID()
	} else if u.ID > r.d.seq {
		r.d.seq = u.ID
	}
	r.d.users[u.ID] = *u
	return nil
}

func (r walletRepo) Apply(_ context.Context, userID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	u, ok := r.d.users[userID]
	if !ok {
		return decimal.Zero, domain.ErrUserNotFound
	}
	balance := u.Wallet.Add(delta)
	if balance.IsNegative() {
		return decimal.Zero, domain.ErrInsufficientBalance
	}
	u.Wallet = balance
	r.d.users[userID] = u
	return balance, nil
}

type paymentRepo struct{ d *dataset }

func (r paymentRepo) Create(_ context.Context, p *domain.Payment) error {
	p.ID = r.d.nextID()
	r.d.payments = append(r.d.payments, *p)
	return nil
}

func (r paymentRepo) ListByTournament(_ context.Context, tournamentID int64) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range r.d.payments {
		if p.TournamentID == tournamentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r paymentRepo) TotalRevenue(_ context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range r.d.payments {
		if p.Status == domain.PaymentRecordSuccess {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}
