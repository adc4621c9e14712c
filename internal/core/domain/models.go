package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is an application user. The password field holds a bcrypt hash and is
// never serialized.
type User struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Password         string     `json:"-"`
	ResetToken       *string    `json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	Profile          *Profile   `json:"profile,omitempty"`
}

// Profile holds the identity details and profile image of a user.
type Profile struct {
	ID             int64   `json:"id"`
	UserID         int64   `json:"user_id"`
	IdentityType   *string `json:"identity_type"`
	IdentityNumber *int64  `json:"identity_number"`
	Address        *string `json:"address"`
	ImageURL       *string `json:"image_url"`
}

// BankAccount is a balance-holding sub-account owned by a user.
// Balance is the only field the transfer engine ever mutates; it never goes
// below zero after a committed transfer.
type BankAccount struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	BankName      string          `json:"bank_name"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Transaction is an immutable ledger entry recording one completed transfer
// between two distinct bank accounts. Rows are append-only: nothing in the
// codebase updates or deletes them.
type Transaction struct {
	ID                   int64           `json:"id"`
	SourceAccountID      int64           `json:"source_account_id"`
	DestinationAccountID int64           `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount"`
	CreatedAt            time.Time       `json:"created_at"`
}

// AccountOwner is the subset of user data exposed on transaction detail.
type AccountOwner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AccountWithOwner decorates a bank account with its owner, for the
// transaction detail endpoint.
type AccountWithOwner struct {
	BankAccount
	User AccountOwner `json:"user"`
}

// TransactionDetail is a transaction joined with both accounts and their
// owners.
type TransactionDetail struct {
	Transaction
	SourceAccount      *AccountWithOwner `json:"source_account"`
	DestinationAccount *AccountWithOwner `json:"destination_account"`
}
