package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus tracks whether a participant's entry fee has been settled.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// PaymentMethod is how an entry fee was paid.
type PaymentMethod string

const (
	MethodWallet PaymentMethod = "wallet"
	MethodPaytm  PaymentMethod = "paytm"
	MethodUPI    PaymentMethod = "upi"
)

// Valid reports whether m is one of the supported payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodWallet, MethodPaytm, MethodUPI:
		return true
	}
	return false
}

// Payment ledger statuses. These differ from PaymentStatus on purpose: the
// ledger records the gateway outcome, the participant records eligibility.
const (
	PaymentRecordSuccess = "success"
	PaymentRecordFailed  = "failed"
	PaymentRecordPending = "pending"
)

// NoAnswer is the answer index sent when the question timer expires.
const NoAnswer = -1

// AllowedTimers lists the per-question timer values, in seconds.
var AllowedTimers = []int{10, 15, 20, 30}

// User is the wallet owner. Identity and credentials live elsewhere.
type User struct {
	ID       int64           `json:"id"`
	Username string          `json:"username"`
	IsAdmin  bool            `json:"isAdmin"`
	Wallet   decimal.Decimal `json:"wallet"`
}

// Tournament is a scheduled quiz competition with an entry fee and prize pool.
type Tournament struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	EntryFee        decimal.Decimal `json:"entryFee"`
	PrizePool       decimal.Decimal `json:"prizePool"`
	TotalSlots      int             `json:"totalSlots"`
	StartTime       time.Time       `json:"startTime"`
	EndTime         time.Time       `json:"endTime"`
	IsPublished     bool            `json:"isPublished"`
	ResultPublished bool            `json:"resultPublished"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Quiz belongs to exactly one tournament.
type Quiz struct {
	ID           int64     `json:"id"`
	TournamentID int64     `json:"tournamentId"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Question is a timed multiple-choice question. CorrectAnswer is a zero-based
// index into Options.
type Question struct {
	ID            int64    `json:"id"`
	QuizID        int64    `json:"quizId"`
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Timer         int      `json:"timer"`
}

// Public strips the correct answer so the question can be sent to players.
func (q Question) Public() PublicQuestion {
	opts := make([]string, len(q.Options))
	copy(opts, q.Options)
	return PublicQuestion{
		ID:      q.ID,
		QuizID:  q.QuizID,
		Text:    q.Text,
		Options: opts,
		Timer:   q.Timer,
	}
}

// PublicQuestion is a Question without its answer. It has no field that can
// carry the correct index.
type PublicQuestion struct {
	ID      int64    `json:"id"`
	QuizID  int64    `json:"quizId"`
	Text    string   `json:"question"`
	Options []string `json:"options"`
	Timer   int      `json:"timer"`
}

// QuizContent is a tournament's quiz together with its ordered questions.
type QuizContent struct {
	Quiz      Quiz       `json:"quiz"`
	Questions []Question `json:"questions"`
}

// Question looks up a question of this quiz by id.
func (c QuizContent) Question(id int64) (Question, bool) {
	for _, q := range c.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Participant is a user's enrollment in one tournament. (UserID, TournamentID)
// is unique.
type Participant struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"userId"`
	TournamentID  int64           `json:"tournamentId"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	Score         int             `json:"score"`
	TimeTaken     int             `json:"timeTaken"`
	Prize         decimal.Decimal `json:"prize"`
	HasAttempted  bool            `json:"hasAttempted"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Eligible reports whether the participant has paid and may play.
func (p Participant) Eligible() bool {
	return p.PaymentStatus == PaymentCompleted
}

// UserResponse is one answer. (UserID, QuestionID, TournamentID) is unique.
type UserResponse struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"userId"`
	QuestionID   int64     `json:"questionId"`
	TournamentID int64     `json:"tournamentId"`
	AnswerIndex  int       `json:"answerIndex"`
	IsCorrect    bool      `json:"isCorrect"`
	TimeTaken    int       `json:"timeTaken"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Payment is an append-only ledger entry for an entry fee.
type Payment struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"userId"`
	TournamentID  int64           `json:"tournamentId"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	Method        PaymentMethod   `json:"method"`
	TransactionID string          `json:"transactionId"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// RankedParticipant is a leaderboard row.
type RankedParticipant struct {
	Rank      int             `json:"rank"`
	UserID    int64           `json:"userId"`
	Score     int             `json:"score"`
	TimeTaken int             `json:"timeTaken"`
	Prize     decimal.Decimal `json:"prize"`
}

// Leaderboard is the ranked result of one tournament.
type Leaderboard struct {
	TournamentID int64               `json:"tournamentId"`
	Published    bool                `json:"published"`
	Entries      []RankedParticipant `json:"entries"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}
