package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/onnyvergiean/basic-banking-system/internal/core/domain"
)

type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// ListTransactions returns the full ledger, newest first.
func (r *TransactionRepository) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	query := `
		SELECT id, source_account_id, destination_account_id, amount::text, created_at
		FROM transactions
		ORDER BY id DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, domain.StorageFailure(err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		var (
			t   domain.Transaction
			raw string
		)
		if err := rows.Scan(&t.ID, &t.SourceAccountID, &t.DestinationAccountID, &raw, &t.CreatedAt); err != nil {
			return nil, domain.StorageFailure(err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, domain.StorageFailure(err)
		}
		t.Amount = amount
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageFailure(err)
	}
	return transactions, nil
}

// GetTransactionDetail returns one ledger entry joined with both accounts and
// their owners.
func (r *TransactionRepository) GetTransactionDetail(ctx context.Context, id int64) (*domain.TransactionDetail, error) {
	query := `
		SELECT t.id, t.source_account_id, t.destination_account_id, t.amount::text, t.created_at,
		       sa.id, sa.user_id, sa.bank_name, sa.account_number, sa.balance::text, sa.created_at,
		       su.name, su.email,
		       da.id, da.user_id, da.bank_name, da.account_number, da.balance::text, da.created_at,
		       du.name, du.email
		FROM transactions t
		JOIN bank_accounts sa ON sa.id = t.source_account_id
		JOIN users su ON su.id = sa.user_id
		JOIN bank_accounts da ON da.id = t.destination_account_id
		JOIN users du ON du.id = da.user_id
		WHERE t.id = $1
	`

	var (
		detail              domain.TransactionDetail
		source, destination domain.AccountWithOwner
		rawAmount           string
		rawSource, rawDest  string
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&detail.ID, &detail.SourceAccountID, &detail.DestinationAccountID, &rawAmount, &detail.CreatedAt,
		&source.ID, &source.UserID, &source.BankName, &source.AccountNumber, &rawSource, &source.BankAccount.CreatedAt,
		&source.User.Name, &source.User.Email,
		&destination.ID, &destination.UserID, &destination.BankName, &destination.AccountNumber, &rawDest, &destination.BankAccount.CreatedAt,
		&destination.User.Name, &destination.User.Email,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("transaction not found")
		}
		return nil, domain.StorageFailure(err)
	}

	if detail.Amount, err = decimal.NewFromString(rawAmount); err != nil {
		return nil, domain.StorageFailure(err)
	}
	if source.Balance, err = decimal.NewFromString(rawSource); err != nil {
		return nil, domain.StorageFailure(err)
	}
	if destination.Balance, err = decimal.NewFromString(rawDest); err != nil {
		return nil, domain.StorageFailure(err)
	}

	detail.SourceAccount = &source
	detail.DestinationAccount = &destination
	return &detail, nil
}
