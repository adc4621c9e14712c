// Package transfer implements the funds-transfer engine: request validation
// in a fixed order, then a single atomic debit/credit/ledger-insert delegated
// to the store.
package transfer

import (
	"context"
	"encoding/json"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/onnyvergiean/basic-banking-system/internal/core/domain"
)

const (
	msgNotNumbers        = "sourceAccountId, destinationAccountId, and amount must be numbers"
	msgAmountScale       = "amount cannot have more than 2 decimal places"
	msgSameAccount       = "source and destination accounts cannot be the same"
	msgAccountNotFound   = "source or destination account not found"
	msgInsufficientFunds = "insufficient balance in source account"
)

// Store is the persistence contract the engine depends on.
//
// ApplyTransfer must execute the debit, credit and ledger insert as one
// atomic unit, re-checking account existence and balance after acquiring row
// locks. It reports the same typed errors as the pre-checks so a concurrent
// winner of the same funds surfaces correctly.
type Store interface {
	GetAccount(ctx context.Context, id int64) (*domain.BankAccount, error)
	ApplyTransfer(ctx context.Context, sourceID, destinationID int64, amount decimal.Decimal) (*domain.Transaction, error)
}

// Request carries the raw transfer inputs. Fields are untyped on purpose:
// clients send ids and amounts as JSON numbers or strings interchangeably,
// and rejecting the unparseable ones is the engine's first validation step.
type Request struct {
	SourceAccountID      any `json:"sourceAccountId"`
	DestinationAccountID any `json:"destinationAccountId"`
	Amount               any `json:"amount"`
}

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Execute validates req and, if it passes, moves the funds. The checks run in
// a fixed order and the first failure wins:
//
//  1. all three inputs parse as numbers, amount positive with at most 2
//     decimal places
//  2. source != destination
//  3. both accounts exist
//  4. source balance covers the amount
//
// The engine performs no retries and no deduplication: executing the same
// request twice performs two transfers.
func (e *Engine) Execute(ctx context.Context, req Request) (*domain.Transaction, error) {
	sourceID, ok := parseID(req.SourceAccountID)
	if !ok {
		return nil, domain.InvalidArgument(msgNotNumbers)
	}
	destinationID, ok := parseID(req.DestinationAccountID)
	if !ok {
		return nil, domain.InvalidArgument(msgNotNumbers)
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		return nil, domain.InvalidArgument(msgNotNumbers)
	}
	// Balances are stored with 2 decimal places; a finer-grained amount
	// would be silently rounded on the way to the database, so the ledger
	// row would no longer match the value moved.
	if !amount.Equal(amount.Round(2)) {
		return nil, domain.InvalidArgument(msgAmountScale)
	}

	if sourceID == destinationID {
		return nil, domain.SameAccount(msgSameAccount)
	}

	if err := e.checkAccount(ctx, sourceID); err != nil {
		return nil, err
	}
	if err := e.checkAccount(ctx, destinationID); err != nil {
		return nil, err
	}

	tx, err := e.store.ApplyTransfer(ctx, sourceID, destinationID, amount)
	if err != nil {
		switch domain.KindOf(err) {
		case domain.KindNotFound:
			// account disappeared between the pre-check and the lock
			return nil, domain.NotFound(msgAccountNotFound)
		case domain.KindInsufficientFunds:
			return nil, domain.InsufficientFunds(msgInsufficientFunds)
		default:
			return nil, domain.StorageFailure(err)
		}
	}
	return tx, nil
}

func (e *Engine) checkAccount(ctx context.Context, id int64) error {
	_, err := e.store.GetAccount(ctx, id)
	if err == nil {
		return nil
	}
	if domain.KindOf(err) == domain.KindNotFound {
		return domain.NotFound(msgAccountNotFound)
	}
	return domain.StorageFailure(err)
}

// parseID coerces a JSON value to an integer account id. Fractional numbers
// are rejected rather than truncated.
func parseID(v any) (int64, bool) {
	switch t := v.(type) {
	case string:
		id, err := strconv.ParseInt(t, 10, 64)
		return id, err == nil
	case json.Number:
		id, err := t.Int64()
		return id, err == nil
	case float64:
		id := int64(t)
		return id, float64(id) == t
	case int64:
		return t, true
	case int:
		return int64(t), true
	default:
		return 0, false
	}
}

// parseAmount coerces a JSON value to a positive decimal amount.
func parseAmount(v any) (decimal.Decimal, bool) {
	var (
		d   decimal.Decimal
		err error
	)
	switch t := v.(type) {
	case string:
		d, err = decimal.NewFromString(t)
	case json.Number:
		d, err = decimal.NewFromString(t.String())
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Decimal{}, false
		}
		d = decimal.NewFromFloat(t)
	case int64:
		d = decimal.NewFromInt(t)
	case int:
		d = decimal.NewFromInt(int64(t))
	default:
		return decimal.Decimal{}, false
	}
	if err != nil {
		return decimal.Decimal{}, false
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, false
	}
	return d, true
}
