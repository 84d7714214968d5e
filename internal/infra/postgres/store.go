package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"quiz-tournament-service/internal/app"
	"quiz-tournament-service/internal/domain"
)

const uniqueViolation = "23505"

// OpenDB connects bun to Postgres through pgdriver.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Store is the Postgres app.Store. Transactions run at read committed;
// contended rows are locked explicitly (tournament FOR UPDATE on join and
// settlement) and the wallet and settlement writes are conditional updates.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, repos app.Repositories) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, repositories(tx))
	})
}

// CreateUser inserts a wallet owner outside of any service transaction.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	return walletRepo{s.db}.Create(ctx, u)
}

func repositories(db bun.IDB) app.Repositories {
	return app.Repositories{
		Tournaments:  tournamentRepo{db},
		Quizzes:      quizRepo{db},
		Questions:    questionRepo{db},
		Participants: participantRepo{db},
		Responses:    responseRepo{db},
		Wallets:      walletRepo{db},
		Payments:     paymentRepo{db},
	}
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation
}

type tournamentRepo struct{ db bun.IDB }

func (r tournamentRepo) Get(ctx context.Context, id int64) (domain.Tournament, error) {
	return r.get(ctx, id, "")
}

func (r tournamentRepo) GetForUpdate(ctx context.Context, id int64) (domain.Tournament, error) {
	return r.get(ctx, id, "UPDATE")
}

func (r tournamentRepo) GetForShare(ctx context.Context, id int64) (domain.Tournament, error) {
	return r.get(ctx, id, "SHARE")
}

// get reads one tournament row. lock is a row-level lock strength for
// SELECT ... FOR, or empty for a plain read.
func (r tournamentRepo) get(ctx context.Context, id int64, lock string) (domain.Tournament, error) {
	var m tournamentModel
	q := r.db.NewSelect().Model(&m).Where("t.id = ?", id)
	if lock != "" {
		q = q.For(lock)
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Tournament{}, domain.ErrTournamentNotFound
		}
		return domain.Tournament{}, fmt.Errorf("select tournament: %w", err)
	}
	return m.toDomain(), nil
}

func (r tournamentRepo) List(ctx context.Context) ([]domain.Tournament, error) {
	var rows []tournamentModel
	if err := r.db.NewSelect().Model(&rows).Order("t.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}
	out := make([]domain.Tournament, len(rows))
	for i, m := range rows {
		out[i] = m.toDomain()
	}
	return out, nil
}

func (r tournamentRepo) Create(ctx context.Context, t *domain.Tournament) error {
	m := fromTournament(*t)
	if _, err := r.db.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("insert tournament: %w", err)
	}
	t.ID = m.ID
	return nil
}

func (r tournamentRepo) Update(ctx context.Context, t domain.Tournament) error {
	m := fromTournament(t)
	res, err := r.db.NewUpdate().Model(&m).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update tournament: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTournamentNotFound
	}
	return nil
}

func (r tournamentRepo) ClaimResultPublication(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*tournamentModel)(nil)).
		Set("result_published = TRUE").
		Where("id = ?", id).
		Where("result_published = FALSE").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("claim result publication: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim result publication: %w", err)
	}
	return n == 1, nil
}

type quizRepo struct{ db bun.IDB }

func (r quizRepo) GetByTournament(ctx context.Context, tournamentID int64) (domain.Quiz, error) {
	var m quizModel
	err := r.db.NewSelect().Model(&m).Where("qz.tournament_id = ?", tournamentID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Quiz{}, domain.ErrQuizMissing
		}
		return domain.Quiz{}, fmt.Errorf("select quiz: %w", err)
	}
	return m.toDomain(), nil
}

func (r quizRepo) Create(ctx context.Context, q *domain.Quiz) error {
	m := quizModel{TournamentID: q.TournamentID, Title: q.Title, CreatedAt: q.CreatedAt}
	if _, err := r.db.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrQuizExists
		}
		return fmt.Errorf("insert quiz: %w", err)
	}
	q.ID = m.ID
	return nil
}

type questionRepo struct{ db bun.IDB }

func (r questionRepo) Get(ctx context.Context, id int64) (domain.Question, error) {
	var m questionModel
	if err := r.db.NewSelect().Model(&m).Where("q.id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Question{}, domain.ErrQuestionNotFound
		}
		return domain.Question{}, fmt.Errorf("select question: %w", err)
	}
	return m.toDomain(), nil
}

func (r questionRepo) ListByQuiz(ctx context.Context, quizID int64) ([]domain.Question, error) {
	var rows []questionModel
	if err := r.db.NewSelect().Model(&rows).Where("q.quiz_id = ?", quizID).Order("q.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]domain.Question, len(rows))
	for i, m := range rows {
		out[i] = m.toDomain()
	}
	return out, nil
}

func (r questionRepo) Create(ctx context.Context, q *domain.Question) error {
	m := questionModel{
		QuizID:        q.QuizID,
		Question:      q.Text,
		Options:       q.Options,
		CorrectAnswer: q.CorrectAnswer,
		Timer:         q.Timer,
	}
	if _, err := r.db.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	q.ID = m.ID
	return nil
}

type participantRepo struct{ db bun.IDB }

func (r participantRepo) Get(ctx context.Context, userID, tournamentID int64) (domain.Participant, error) {
	var m participantModel
	err := r.db.NewSelect().Model(&m).
		Where("p.user_id = ?", userID).
		Where("p.tournament_id = ?", tournamentID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Participant{}, domain.ErrNotJoined
		}
		return domain.Participant{}, fmt.Errorf("select participant: %w", err)
	}
	return m.toDomain(), nil
}

// Upsert relies on the (user_id, tournament_id) unique constraint; an existing
// row keeps its id, creation time and attempt data and only takes the new
// payment status.
func (r participantRepo) Upsert(ctx context.Context, p *domain.Participant) error {
	m := fromParticipant(*p)
	_, err := r.db.NewInsert().Model(&m).
		On("CONFLICT (user_id, tournament_id) DO UPDATE").
		Set("payment_status = EXCLUDED.payment_status").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	*p = m.toDomain()
	return nil
}

func (r participantRepo) CountCompleted(ctx context.Context, tournamentID int64) (int, error) {
	n, err := r.db.NewSelect().Model((*participantModel)(nil)).
		Where("p.tournament_id = ?", tournamentID).
		Where("p.payment_status = ?", string(domain.PaymentCompleted)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return n, nil
}

func (r participantRepo) ListByTournament(ctx context.Context, tournamentID int64) ([]domain.Participant, error) {
	var rows []participantModel
	err := r.db.NewSelect().Model(&rows).
		Where("p.tournament_id = ?", tournamentID).
		Order("p.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return participantsToDomain(rows), nil
}

func (r participantRepo) UpdateScore(ctx context.Context, userID, tournamentID int64, score, timeTaken int) error {
	res, err := r.db.NewUpdate().Model((*participantModel)(nil)).
		Set("score = ?", score).
		Set("time_taken = ?", timeTaken).
		Set("has_attempted = TRUE").
		Where("user_id = ?", userID).
		Where("tournament_id = ?", tournamentID).
		Exec(ctx)
	return affectedOne(res, err, "update participant score")
}

func (r participantRepo) UpdatePrize(ctx context.Context, userID, tournamentID int64, prize decimal.Decimal) error {
	res, err := r.db.NewUpdate().Model((*participantModel)(nil)).
		Set("prize = ?", prize).
		Where("user_id = ?", userID).
		Where("tournament_id = ?", tournamentID).
		Exec(ctx)
	return affectedOne(res, err, "update participant prize")
}

func (r participantRepo) ListWinners(ctx context.Context, limit int) ([]domain.Participant, error) {
	var rows []participantModel
	q := r.db.NewSelect().Model(&rows).
		Where("p.prize > 0").
		Order("p.prize DESC", "p.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list winners: %w", err)
	}
	return participantsToDomain(rows), nil
}

func participantsToDomain(rows []participantModel) []domain.Participant {
	out := make([]domain.Participant, len(rows))
	for i, m := range rows {
		out[i] = m.toDomain()
	}
	return out
}

func affectedOne(res sql.Result, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotJoined
	}
	return nil
}

type responseRepo struct{ db bun.IDB }

func (r responseRepo) Save(ctx context.Context, resp *domain.UserResponse) error {
	m := responseModel{
		UserID:       resp.UserID,
		QuestionID:   resp.QuestionID,
		TournamentID: resp.TournamentID,
		AnswerIndex:  resp.AnswerIndex,
		IsCorrect:    resp.IsCorrect,
		TimeTaken:    resp.TimeTaken,
		CreatedAt:    resp.CreatedAt,
	}
	if _, err := r.db.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateResponse
		}
		return fmt.Errorf("insert response: %w", err)
	}
	resp.ID = m.ID
	return nil
}

func (r responseRepo) ListByUserAndTournament(ctx context.Context, userID, tournamentID int64) ([]domain.UserResponse, error) {
	var rows []responseModel
	err := r.db.NewSelect().Model(&rows).
		Where("r.user_id = ?", userID).
		Where("r.tournament_id = ?", tournamentID).
		Order("r.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	out := make([]domain.UserResponse, len(rows))
	for i, m := range rows {
		out[i] = m.toDomain()
	}
	return out, nil
}

type walletRepo struct{ db bun.IDB }

func (r walletRepo) Get(ctx context.Context, userID int64) (domain.User, error) {
	var m userModel
	if err := r.db.NewSelect().Model(&m).Where("u.id = ?", userID).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return m.toDomain(), nil
}

func (r walletRepo) Create(ctx context.Context, u *domain.User) error {
	m := userModel{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin, Wallet: u.Wallet}
	if _, err := r.db.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = m.ID
	return nil
}

// Apply is a single conditional UPDATE, so concurrent debits of one wallet
// cannot overdraw it.
func (r walletRepo) Apply(ctx context.Context, userID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.NewUpdate().Model((*userModel)(nil)).
		Set("wallet = wallet + ?", delta).
		Where("id = ?", userID).
		Where("wallet + ? >= 0", delta).
		Returning("wallet").
		Scan(ctx, &balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("apply wallet delta: %w", err)
	}
	exists, err := r.db.NewSelect().Model((*userModel)(nil)).Where("id = ?", userID).Exists(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return decimal.Zero, domain.ErrUserNotFound
	}
	return decimal.Zero, domain.ErrInsufficientBalance
}

type paymentRepo struct{ db bun.IDB }

func (r paymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	m := paymentModel{
		UserID:        p.UserID,
		TournamentID:  p.TournamentID,
		Amount:        p.Amount,
		Status:        p.Status,
		Method:        string(p.Method),
		TransactionID: p.TransactionID,
		CreatedAt:     p.CreatedAt,
	}
	if _, err := r.db.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	p.ID = m.ID
	return nil
}

func (r paymentRepo) ListByTournament(ctx context.Context, tournamentID int64) ([]domain.Payment, error) {
	var rows []paymentModel
	err := r.db.NewSelect().Model(&rows).
		Where("pay.tournament_id = ?", tournamentID).
		Order("pay.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	out := make([]domain.Payment, len(rows))
	for i, m := range rows {
		out[i] = m.toDomain()
	}
	return out, nil
}

func (r paymentRepo) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.NewSelect().Model((*paymentModel)(nil)).
		ColumnExpr("COALESCE(SUM(pay.amount), 0)").
		Where("pay.status = ?", domain.PaymentRecordSuccess).
		Scan(ctx, &total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum revenue: %w", err)
	}
	return total, nil
}
