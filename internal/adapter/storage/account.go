package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/onnyvergiean/basic-banking-system/internal/core/domain"
)

type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

// CreateAccount opens a bank account for a user.
func (r *AccountRepository) CreateAccount(ctx context.Context, userID int64, bankName, accountNumber string, balance decimal.Decimal) (*domain.BankAccount, error) {
	query := `
		INSERT INTO bank_accounts (user_id, bank_name, account_number, balance)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, bank_name, account_number, balance::text, created_at
	`
	acc, err := scanAccount(r.db.QueryRow(ctx, query, userID, bankName, accountNumber, balance.StringFixed(2)))
	if err != nil {
		return nil, domain.StorageFailure(err)
	}
	return acc, nil
}

// GetAccount looks up one bank account by id.
func (r *AccountRepository) GetAccount(ctx context.Context, id int64) (*domain.BankAccount, error) {
	query := `
		SELECT id, user_id, bank_name, account_number, balance::text, created_at
		FROM bank_accounts
		WHERE id = $1
	`
	acc, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("account not found")
		}
		return nil, domain.StorageFailure(err)
	}
	return acc, nil
}

// GetAccountForUser looks up one bank account scoped to its owner.
func (r *AccountRepository) GetAccountForUser(ctx context.Context, userID, accountID int64) (*domain.BankAccount, error) {
	query := `
		SELECT id, user_id, bank_name, account_number, balance::text, created_at
		FROM bank_accounts
		WHERE id = $1 AND user_id = $2
	`
	acc, err := scanAccount(r.db.QueryRow(ctx, query, accountID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("account not found")
		}
		return nil, domain.StorageFailure(err)
	}
	return acc, nil
}

// ListAccountsByUser returns all bank accounts owned by a user.
func (r *AccountRepository) ListAccountsByUser(ctx context.Context, userID int64) ([]domain.BankAccount, error) {
	query := `
		SELECT id, user_id, bank_name, account_number, balance::text, created_at
		FROM bank_accounts
		WHERE user_id = $1
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, domain.StorageFailure(err)
	}
	defer rows.Close()

	var accounts []domain.BankAccount
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, domain.StorageFailure(err)
		}
		accounts = append(accounts, *acc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageFailure(err)
	}
	return accounts, nil
}

// ApplyTransfer moves amount from source to destination and appends the
// ledger row, all inside one transaction.
//
// Both account rows are locked with SELECT ... FOR UPDATE in ascending id
// order, so two transfers over the same pair in opposite directions cannot
// deadlock. Existence and balance are re-checked after the locks are held:
// the pre-checks in the engine only shape error messages, this is the check
// that counts.
func (r *AccountRepository) ApplyTransfer(ctx context.Context, sourceID, destinationID int64, amount decimal.Decimal) (*domain.Transaction, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, domain.StorageFailure(err)
	}
	defer tx.Rollback(ctx)

	lockQuery := `
		SELECT id, balance::text
		FROM bank_accounts
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`
	rows, err := tx.Query(ctx, lockQuery, []int64{sourceID, destinationID})
	if err != nil {
		return nil, domain.StorageFailure(err)
	}

	balances := make(map[int64]decimal.Decimal, 2)
	for rows.Next() {
		var (
			id  int64
			raw string
		)
		if err := rows.Scan(&id, &raw); err != nil {
			rows.Close()
			return nil, domain.StorageFailure(err)
		}
		balance, err := decimal.NewFromString(raw)
		if err != nil {
			rows.Close()
			return nil, domain.StorageFailure(err)
		}
		balances[id] = balance
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, domain.StorageFailure(err)
	}

	sourceBalance, okSource := balances[sourceID]
	if _, okDestination := balances[destinationID]; !okSource || !okDestination {
		return nil, domain.NotFound("account not found")
	}

	if sourceBalance.LessThan(amount) {
		return nil, domain.InsufficientFunds("insufficient balance in source account")
	}

	value := amount.StringFixed(2)
	if _, err := tx.Exec(ctx, `UPDATE bank_accounts SET balance = balance - $1 WHERE id = $2`, value, sourceID); err != nil {
		return nil, domain.StorageFailure(err)
	}
	if _, err := tx.Exec(ctx, `UPDATE bank_accounts SET balance = balance + $1 WHERE id = $2`, value, destinationID); err != nil {
		return nil, domain.StorageFailure(err)
	}

	transaction := &domain.Transaction{
		SourceAccountID:      sourceID,
		DestinationAccountID: destinationID,
		Amount:               amount,
	}
	insertQuery := `
		INSERT INTO transactions (source_account_id, destination_account_id, amount)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	if err := tx.QueryRow(ctx, insertQuery, sourceID, destinationID, value).Scan(&transaction.ID, &transaction.CreatedAt); err != nil {
		return nil, domain.StorageFailure(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.StorageFailure(err)
	}
	return transaction, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.BankAccount, error) {
	var (
		acc domain.BankAccount
		raw string
	)
	if err := row.Scan(&acc.ID, &acc.UserID, &acc.BankName, &acc.AccountNumber, &raw, &acc.CreatedAt); err != nil {
		return nil, err
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	acc.Balance = balance
	return &acc, nil
}
