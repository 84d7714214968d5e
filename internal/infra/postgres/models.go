package postgres

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"quiz-tournament-service/internal/domain"
)

type userModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       int64           `bun:"id,pk,autoincrement"`
	Username string          `bun:"username,notnull"`
	IsAdmin  bool            `bun:"is_admin,notnull"`
	Wallet   decimal.Decimal `bun:"wallet,type:numeric(10,2),notnull"`
}

type tournamentModel struct {
	bun.BaseModel `bun:"table:tournaments,alias:t"`

	ID              int64           `bun:"id,pk,autoincrement"`
	Name            string          `bun:"name,notnull"`
	Description     string          `bun:"description,notnull"`
	EntryFee        decimal.Decimal `bun:"entry_fee,type:numeric(10,2),notnull"`
	PrizePool       decimal.Decimal `bun:"prize_pool,type:numeric(10,2),notnull"`
	TotalSlots      int             `bun:"total_slots,notnull"`
	StartTime       time.Time       `bun:"start_time,notnull"`
	EndTime         time.Time       `bun:"end_time,notnull"`
	IsPublished     bool            `bun:"is_published,notnull"`
	ResultPublished bool            `bun:"result_published,notnull"`
	CreatedAt       time.Time       `bun:"created_at,notnull"`
}

type quizModel struct {
	bun.BaseModel `bun:"table:quizzes,alias:qz"`

	ID           int64     `bun:"id,pk,autoincrement"`
	TournamentID int64     `bun:"tournament_id,notnull"`
	Title        string    `bun:"title,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

type questionModel struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID            int64    `bun:"id,pk,autoincrement"`
	QuizID        int64    `bun:"quiz_id,notnull"`
	Question      string   `bun:"question,notnull"`
	Options       []string `bun:"options,type:jsonb,notnull"`
	CorrectAnswer int      `bun:"correct_answer,notnull"`
	Timer         int      `bun:"timer,notnull"`
}

type participantModel struct {
	bun.BaseModel `bun:"table:participants,alias:p"`

	ID            int64           `bun:"id,pk,autoincrement"`
	UserID        int64           `bun:"user_id,notnull"`
	TournamentID  int64           `bun:"tournament_id,notnull"`
	PaymentStatus string          `bun:"payment_status,notnull"`
	Score         int             `bun:"score,notnull"`
	TimeTaken     int             `bun:"time_taken,notnull"`
	Prize         decimal.Decimal `bun:"prize,type:numeric(10,2),notnull"`
	HasAttempted  bool            `bun:"has_attempted,notnull"`
	CreatedAt     time.Time       `bun:"created_at,notnull"`
}

type responseModel struct {
	bun.BaseModel `bun:"table:user_responses,alias:r"`

	ID           int64     `bun:"id,pk,autoincrement"`
	UserID       int64     `bun:"user_id,notnull"`
	QuestionID   int64     `bun:"question_id,notnull"`
	TournamentID int64     `bun:"tournament_id,notnull"`
	AnswerIndex  int       `bun:"answer_index,notnull"`
	IsCorrect    bool      `bun:"is_correct,notnull"`
	TimeTaken    int       `bun:"time_taken,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

type paymentModel struct {
	bun.BaseModel `bun:"table:payments,alias:pay"`

	ID            int64           `bun:"id,pk,autoincrement"`
	UserID        int64           `bun:"user_id,notnull"`
	TournamentID  int64           `bun:"tournament_id,notnull"`
	Amount        decimal.Decimal `bun:"amount,type:numeric(10,2),notnull"`
	Status        string          `bun:"status,notnull"`
	Method        string          `bun:"method,notnull"`
	TransactionID string          `bun:"transaction_id,notnull"`
	CreatedAt     time.Time       `bun:"created_at,notnull"`
}

func (m userModel) toDomain() domain.User {
	return domain.User{ID: m.ID, Username: m.Username, IsAdmin: m.IsAdmin, Wallet: m.Wallet}
}

func fromTournament(t domain.Tournament) tournamentModel {
	return tournamentModel{
		ID:              t.ID,
		Name:            t.Name,
		Description:     t.Description,
		EntryFee:        t.EntryFee,
		PrizePool:       t.PrizePool,
		TotalSlots:      t.TotalSlots,
		StartTime:       t.StartTime,
		EndTime:         t.EndTime,
		IsPublished:     t.IsPublished,
		ResultPublished: t.ResultPublished,
		CreatedAt:       t.CreatedAt,
	}
}

func (m tournamentModel) toDomain() domain.Tournament {
	return domain.Tournament{
		ID:              m.ID,
		Name:            m.Name,
		Description:     m.Description,
		EntryFee:        m.EntryFee,
		PrizePool:       m.PrizePool,
		TotalSlots:      m.TotalSlots,
		StartTime:       m.StartTime,
		EndTime:         m.EndTime,
		IsPublished:     m.IsPublished,
		ResultPublished: m.ResultPublished,
		CreatedAt:       m.CreatedAt,
	}
}

func (m quizModel) toDomain() domain.Quiz {
	return domain.Quiz{ID: m.ID, TournamentID: m.TournamentID, Title: m.Title, CreatedAt: m.CreatedAt}
}

func (m questionModel) toDomain() domain.Question {
	return domain.Question{
		ID:            m.ID,
		QuizID:        m.QuizID,
		Text:          m.Question,
		Options:       m.Options,
		CorrectAnswer: m.CorrectAnswer,
		Timer:         m.Timer,
	}
}

func fromParticipant(p domain.Participant) participantModel {
	return participantModel{
		ID:            p.ID,
		UserID:        p.UserID,
		TournamentID:  p.TournamentID,
		PaymentStatus: string(p.PaymentStatus),
		Score:         p.Score,
		TimeTaken:     p.TimeTaken,
		Prize:         p.Prize,
		HasAttempted:  p.HasAttempted,
		CreatedAt:     p.CreatedAt,
	}
}

func (m participantModel) toDomain() domain.Participant {
	return domain.Participant{
		ID:            m.ID,
		UserID:        m.UserID,
		TournamentID:  m.TournamentID,
		PaymentStatus: domain.PaymentStatus(m.PaymentStatus),
		Score:         m.Score,
		TimeTaken:     m.TimeTaken,
		Prize:         m.Prize,
		HasAttempted:  m.HasAttempted,
		CreatedAt:     m.CreatedAt,
	}
}

func (m responseModel) toDomain() domain.UserResponse {
	return domain.UserResponse{
		ID:           m.ID,
		UserID:       m.UserID,
		QuestionID:   m.QuestionID,
		TournamentID: m.TournamentID,
		AnswerIndex:  m.AnswerIndex,
		IsCorrect:    m.IsCorrect,
		TimeTaken:    m.TimeTaken,
		CreatedAt:    m.CreatedAt,
	}
}

func (m paymentModel) toDomain() domain.Payment {
	return domain.Payment{
		ID:            m.ID,
		UserID:        m.UserID,
		TournamentID:  m.TournamentID,
		Amount:        m.Amount,
		Status:        m.Status,
		Method:        domain.PaymentMethod(m.Method),
		TransactionID: m.TransactionID,
		CreatedAt:     m.CreatedAt,
	}
}
