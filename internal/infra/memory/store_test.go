package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"quiz-tournament-service/internal/app"
	"quiz-tournament-service/internal/domain"
)

func TestStoreRollsBackFailedTransaction(t *testing.T) {
	store := NewStore()
	user := store.AddUser(domain.User{Username: "ana", Wallet: decimal.NewFromInt(100)})
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.RunInTx(ctx, func(ctx context.Context, repos app.Repositories) error {
		if _, err := repos.Wallets.Apply(ctx, user.ID, decimal.NewFromInt(-40)); err != nil {
			return err
		}
		if err := repos.Tournaments.Create(ctx, &domain.Tournament{Name: "ghost"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = store.RunInTx(ctx, func(ctx context.Context, repos app.Repositories) error {
		u, err := repos.Wallets.Get(ctx, user.ID)
		if err != nil {
			return err
		}
		if !u.Wallet.Equal(decimal.NewFromInt(100)) {
			t.Fatalf("expected wallet untouched, got %s", u.Wallet)
		}
		list, err := repos.Tournaments.List(ctx)
		if err != nil {
			return err
		}
		if len(list) != 0 {
			t.Fatalf("expected no tournaments, got %d", len(list))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
}

func TestWalletApplyRejectsOverdraft(t *testing.T) {
	store := NewStore()
	user := store.AddUser(domain.User{Username: "ana", Wallet: decimal.NewFromInt(50)})

	err := store.RunInTx(context.Background(), func(ctx context.Context, repos app.Repositories) error {
		_, err := repos.Wallets.Apply(ctx, user.ID, decimal.NewFromInt(-51))
		return err
	})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	err = store.RunInTx(context.Background(), func(ctx context.Context, repos app.Repositories) error {
		_, err := repos.Wallets.Apply(ctx, 999, decimal.NewFromInt(1))
		return err
	})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}

func TestResponseUniqueness(t *testing.T) {
	store := NewStore()
	save := func() error {
		return store.RunInTx(context.Background(), func(ctx context.Context, repos app.Repositories) error {
			return repos.Responses.Save(ctx, &domain.UserResponse{UserID: 1, QuestionID: 2, TournamentID: 3, IsCorrect: true})
		})
	}
	if err := save(); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := save(); !errors.Is(err, domain.ErrDuplicateResponse) {
		t.Fatalf("expected duplicate response, got %v", err)
	}
}

func TestClaimResultPublicationOnce(t *testing.T) {
	store := NewStore()
	var id int64
	claim := func() bool {
		var claimed bool
		err := store.RunInTx(context.Background(), func(ctx context.Context, repos app.Repositories) error {
			if id == 0 {
				tour := domain.Tournament{Name: "t", StartTime: time.Now(), EndTime: time.Now().Add(time.Hour)}
				if err := repos.Tournaments.Create(ctx, &tour); err != nil {
					return err
				}
				id = tour.ID
			}
			var err error
			claimed, err = repos.Tournaments.ClaimResultPublication(ctx, id)
			return err
		})
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
		return claimed
	}
	if !claim() {
		t.Fatalf("expected first claim to win")
	}
	if claim() {
		t.Fatalf("expected second claim to lose")
	}
}

func TestParticipantUpsertKeepsIdentity(t *testing.T) {
	store := NewStore()
	var first, second domain.Participant
	err := store.RunInTx(context.Background(), func(ctx context.Context, repos app.Repositories) error {
		first = domain.Participant{UserID: 1, TournamentID: 2, PaymentStatus: domain.PaymentPending}
		if err := repos.Participants.Upsert(ctx, &first); err != nil {
			return err
		}
		second = domain.Participant{UserID: 1, TournamentID: 2, PaymentStatus: domain.PaymentCompleted}
		return repos.Participants.Upsert(ctx, &second)
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same row, got ids %d and %d", first.ID, second.ID)
	}

	err = store.RunInTx(context.Background(), func(ctx context.Context, repos app.Repositories) error {
		n, err := repos.Participants.CountCompleted(ctx, 2)
		if err != nil {
			return err
		}
		if n != 1 {
			t.Fatalf("expected 1 completed participant, got %d", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
}

func TestListWinnersOrdersByPrize(t *testing.T) {
	store := NewStore()
	err := store.RunInTx(context.Background(), func(ctx context.Context, repos app.Repositories) error {
		prizes := []int64{300, 0, 5000, 1500}
		for i, prize := range prizes {
			p := domain.Participant{UserID: int64(i + 1), TournamentID: 9, PaymentStatus: domain.PaymentCompleted}
			if err := repos.Participants.Upsert(ctx, &p); err != nil {
				return err
			}
			if err := repos.Participants.UpdatePrize(ctx, p.UserID, 9, decimal.NewFromInt(prize)); err != nil {
				return err
			}
		}
		winners, err := repos.Participants.ListWinners(ctx, 2)
		if err != nil {
			return err
		}
		if len(winners) != 2 || winners[0].UserID != 3 || winners[1].UserID != 4 {
			t.Fatalf("unexpected winners %+v", winners)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("winners: %v", err)
	}
}
