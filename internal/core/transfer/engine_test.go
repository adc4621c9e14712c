package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnyvergiean/basic-banking-system/internal/core/domain"
)

// fakeStore is an in-memory Store. The mutex makes ApplyTransfer an atomic
// unit the same way the Postgres transaction does in production.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[int64]*domain.BankAccount
	ledger   []domain.Transaction
	nextID   int64

	getErr   error
	applyErr error
}

func newFakeStore(accounts ...*domain.BankAccount) *fakeStore {
	s := &fakeStore{accounts: make(map[int64]*domain.BankAccount)}
	for _, acc := range accounts {
		s.accounts[acc.ID] = acc
	}
	return s
}

func (s *fakeStore) GetAccount(_ context.Context, id int64) (*domain.BankAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	acc, ok := s.accounts[id]
	if !ok {
		return nil, domain.NotFound("account not found")
	}
	copied := *acc
	return &copied, nil
}

func (s *fakeStore) ApplyTransfer(_ context.Context, sourceID, destinationID int64, amount decimal.Decimal) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applyErr != nil {
		return nil, s.applyErr
	}
	source, ok := s.accounts[sourceID]
	if !ok {
		return nil, domain.NotFound("account not found")
	}
	destination, ok := s.accounts[destinationID]
	if !ok {
		return nil, domain.NotFound("account not found")
	}
	if source.Balance.LessThan(amount) {
		return nil, domain.InsufficientFunds("insufficient balance in source account")
	}
	source.Balance = source.Balance.Sub(amount)
	destination.Balance = destination.Balance.Add(amount)
	s.nextID++
	tx := domain.Transaction{
		ID:                   s.nextID,
		SourceAccountID:      sourceID,
		DestinationAccountID: destinationID,
		Amount:               amount,
	}
	s.ledger = append(s.ledger, tx)
	return &tx, nil
}

func (s *fakeStore) balance(id int64) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id].Balance
}

func account(id int64, balance string) *domain.BankAccount {
	return &domain.BankAccount{ID: id, Balance: decimal.RequireFromString(balance)}
}

func TestExecuteValidation(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		wantKind domain.Kind
		wantMsg  string
	}{
		{
			name:     "non numeric source id",
			req:      Request{SourceAccountID: "abc", DestinationAccountID: "5", Amount: "10"},
			wantKind: domain.KindInvalidArgument,
			wantMsg:  "sourceAccountId, destinationAccountId, and amount must be numbers",
		},
		{
			name:     "non numeric destination id",
			req:      Request{SourceAccountID: "4", DestinationAccountID: true, Amount: "10"},
			wantKind: domain.KindInvalidArgument,
			wantMsg:  "sourceAccountId, destinationAccountId, and amount must be numbers",
		},
		{
			name:     "non numeric amount",
			req:      Request{SourceAccountID: "4", DestinationAccountID: "5", Amount: "ten"},
			wantKind: domain.KindInvalidArgument,
			wantMsg:  "sourceAccountId, destinationAccountId, and amount must be numbers",
		},
		{
			name:     "fractional account id",
			req:      Request{SourceAccountID: 4.5, DestinationAccountID: "5", Amount: "10"},
			wantKind: domain.KindInvalidArgument,
			wantMsg:  "sourceAccountId, destinationAccountId, and amount must be numbers",
		},
		{
			name:     "zero amount",
			req:      Request{SourceAccountID: "4", DestinationAccountID: "5", Amount: "0"},
			wantKind: domain.KindInvalidArgument,
			wantMsg:  "sourceAccountId, destinationAccountId, and amount must be numbers",
		},
		{
			name:     "negative amount",
			req:      Request{SourceAccountID: "4", DestinationAccountID: "5", Amount: float64(-3)},
			wantKind: domain.KindInvalidArgument,
			wantMsg:  "sourceAccountId, destinationAccountId, and amount must be numbers",
		},
		{
			// finer than the 2-decimal balance scale: would be rounded to
			// 0.00 on the way to the database
			name:     "sub cent amount",
			req:      Request{SourceAccountID: "4", DestinationAccountID: "5", Amount: "0.001"},
			wantKind: domain.KindInvalidArgument,
			wantMsg:  "amount cannot have more than 2 decimal places",
		},
		{
			// rounding would move 10.01 while the ledger said 10.005
			name:     "three decimal amount",
			req:      Request{SourceAccountID: "4", DestinationAccountID: "5", Amount: 10.005},
			wantKind: domain.KindInvalidArgument,
			wantMsg:  "amount cannot have more than 2 decimal places",
		},
		{
			// parse failures win over the same-account check
			name:     "bad amount with same accounts",
			req:      Request{SourceAccountID: "4", DestinationAccountID: "4", Amount: "ten"},
			wantKind: domain.KindInvalidArgument,
			wantMsg:  "sourceAccountId, destinationAccountId, and amount must be numbers",
		},
		{
			// the same-account check runs before lookups: these ids do not
			// exist, still SameAccount wins over NotFound
			name:     "same account",
			req:      Request{SourceAccountID: "99", DestinationAccountID: "99", Amount: "10"},
			wantKind: domain.KindSameAccount,
			wantMsg:  "source and destination accounts cannot be the same",
		},
		{
			name:     "missing source account",
			req:      Request{SourceAccountID: "98", DestinationAccountID: "5", Amount: "10"},
			wantKind: domain.KindNotFound,
			wantMsg:  "source or destination account not found",
		},
		{
			name:     "missing destination account",
			req:      Request{SourceAccountID: "4", DestinationAccountID: "98", Amount: "10"},
			wantKind: domain.KindNotFound,
			wantMsg:  "source or destination account not found",
		},
		{
			name:     "insufficient balance",
			req:      Request{SourceAccountID: "4", DestinationAccountID: "5", Amount: "1000"},
			wantKind: domain.KindInsufficientFunds,
			wantMsg:  "insufficient balance in source account",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(account(4, "50"), account(5, "20"))
			engine := NewEngine(store)

			_, err := engine.Execute(context.Background(), tt.req)

			require.Error(t, err)
			assert.Equal(t, tt.wantKind, domain.KindOf(err))
			assert.Equal(t, tt.wantMsg, domain.MessageOf(err))
			assert.True(t, store.balance(4).Equal(decimal.NewFromInt(50)), "source balance must be untouched")
			assert.True(t, store.balance(5).Equal(decimal.NewFromInt(20)), "destination balance must be untouched")
			assert.Empty(t, store.ledger)
		})
	}
}

func TestExecuteSuccess(t *testing.T) {
	store := newFakeStore(account(4, "50"), account(5, "20"))
	engine := NewEngine(store)

	tx, err := engine.Execute(context.Background(), Request{
		SourceAccountID:      json.Number("4"),
		DestinationAccountID: float64(5),
		Amount:               "10",
	})

	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, int64(4), tx.SourceAccountID)
	assert.Equal(t, int64(5), tx.DestinationAccountID)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(10)))

	assert.True(t, store.balance(4).Equal(decimal.NewFromInt(40)))
	assert.True(t, store.balance(5).Equal(decimal.NewFromInt(30)))
	require.Len(t, store.ledger, 1)

	// conservation: total across both accounts is unchanged
	total := store.balance(4).Add(store.balance(5))
	assert.True(t, total.Equal(decimal.NewFromInt(70)))
}

func TestExecuteDecimalAmount(t *testing.T) {
	store := newFakeStore(account(1, "0.30"), account(2, "0"))
	engine := NewEngine(store)

	_, err := engine.Execute(context.Background(), Request{
		SourceAccountID:      "1",
		DestinationAccountID: "2",
		Amount:               "0.10",
	})
	require.NoError(t, err)

	// no float drift: 0.30 - 0.10 is exactly 0.20
	assert.Equal(t, "0.2", store.balance(1).String())
	assert.Equal(t, "0.1", store.balance(2).String())
}

// Accepted amounts must survive the 2-decimal storage representation
// unchanged: what the ledger records is exactly what moves.
func TestExecuteAmountMatchesStoredScale(t *testing.T) {
	store := newFakeStore(account(4, "50"), account(5, "20"))
	engine := NewEngine(store)

	tx, err := engine.Execute(context.Background(), Request{
		SourceAccountID:      "4",
		DestinationAccountID: "5",
		Amount:               "10.500",
	})
	require.NoError(t, err)

	assert.Equal(t, "10.50", tx.Amount.StringFixed(2))
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString(tx.Amount.StringFixed(2))))
	assert.True(t, store.balance(4).Equal(decimal.RequireFromString("39.50")))
	assert.True(t, store.balance(5).Equal(decimal.RequireFromString("30.50")))
}

func TestExecuteIsNotIdempotent(t *testing.T) {
	store := newFakeStore(account(4, "50"), account(5, "20"))
	engine := NewEngine(store)
	req := Request{SourceAccountID: "4", DestinationAccountID: "5", Amount: "10"}

	_, err := engine.Execute(context.Background(), req)
	require.NoError(t, err)
	_, err = engine.Execute(context.Background(), req)
	require.NoError(t, err)

	// two identical requests mean two transfers, there is no deduplication
	assert.True(t, store.balance(4).Equal(decimal.NewFromInt(30)))
	assert.True(t, store.balance(5).Equal(decimal.NewFromInt(40)))
	assert.Len(t, store.ledger, 2)
}

func TestExecuteConcurrentDrain(t *testing.T) {
	const n = 50
	amount := decimal.NewFromInt(2)
	store := newFakeStore(
		account(1, decimal.NewFromInt(n).Mul(amount).String()),
		account(2, "5"),
	)
	engine := NewEngine(store)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Execute(context.Background(), Request{
				SourceAccountID:      "1",
				DestinationAccountID: "2",
				Amount:               "2",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.True(t, store.balance(1).IsZero(), "source must be fully drained, got %s", store.balance(1))
	assert.True(t, store.balance(2).Equal(decimal.NewFromInt(105)))
	assert.Len(t, store.ledger, n)
}

func TestExecuteStorageFailure(t *testing.T) {
	store := newFakeStore(account(4, "50"), account(5, "20"))
	store.getErr = domain.StorageFailure(errors.New("connection refused"))
	engine := NewEngine(store)

	_, err := engine.Execute(context.Background(), Request{
		SourceAccountID:      "4",
		DestinationAccountID: "5",
		Amount:               "10",
	})

	require.Error(t, err)
	assert.Equal(t, domain.KindStorageFailure, domain.KindOf(err))
	// driver detail stays out of the user-facing message
	assert.Equal(t, "internal server error", domain.MessageOf(err))
}

func TestExecuteAccountVanishesBeforeCommit(t *testing.T) {
	// the pre-check passes but the store reports NotFound inside the atomic
	// unit, as when the account is deleted between check and lock
	store := newFakeStore(account(4, "50"), account(5, "20"))
	store.applyErr = domain.NotFound("account not found")
	engine := NewEngine(store)

	_, err := engine.Execute(context.Background(), Request{
		SourceAccountID:      "4",
		DestinationAccountID: "5",
		Amount:               "10",
	})

	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	assert.Equal(t, "source or destination account not found", domain.MessageOf(err))
}

func TestExecuteConcurrentInsufficientFunds(t *testing.T) {
	// two transfers race for the same 10: exactly one wins
	store := newFakeStore(account(1, "10"), account(2, "0"))
	engine := NewEngine(store)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Execute(context.Background(), Request{
				SourceAccountID:      "1",
				DestinationAccountID: "2",
				Amount:               "10",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var failures int
	for err := range errs {
		if err != nil {
			assert.Equal(t, domain.KindInsufficientFunds, domain.KindOf(err))
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	assert.True(t, store.balance(1).IsZero())
	assert.True(t, store.balance(2).Equal(decimal.NewFromInt(10)))
	assert.Len(t, store.ledger, 1)
}
