package handler

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/onnyvergiean/basic-banking-system/internal/core/domain"
)

// AccountStore is the slice of the account repository the account handler
// needs.
type AccountStore interface {
	CreateAccount(ctx context.Context, userID int64, bankName, accountNumber string, balance decimal.Decimal) (*domain.BankAccount, error)
	GetAccountForUser(ctx context.Context, userID, accountID int64) (*domain.BankAccount, error)
	ListAccountsByUser(ctx context.Context, userID int64) ([]domain.BankAccount, error)
}

// UserLookup checks that the owning user exists.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
}

type AccountHandler struct {
	Accounts AccountStore
	Users    UserLookup
}

type CreateAccountRequest struct {
	BankName      string          `json:"bank_name"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
}

// CreateAccount opens a bank account for the user in the path.
// A missing user is answered 200 with a not-found message (compat shape).
func (h *AccountHandler) CreateAccount(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Bad Request: user ID must be a number")
	}

	var req CreateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Bad Request: invalid request body")
	}
	if req.BankName == "" || req.AccountNumber == "" {
		return fail(c, fiber.StatusBadRequest, "Bad Request: bank_name and account_number are required")
	}
	if req.Balance.IsNegative() {
		return fail(c, fiber.StatusBadRequest, "Bad Request: balance cannot be negative")
	}

	if _, err := h.Users.GetUserByID(c.Context(), userID); err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return success(c, fiber.StatusOK, "User not found", nil)
		}
		return failFromErr(c, err)
	}

	account, err := h.Accounts.CreateAccount(c.Context(), userID, req.BankName, req.AccountNumber, req.Balance)
	if err != nil {
		return failFromErr(c, err)
	}

	return success(c, fiber.StatusCreated, "Bank account created!", account)
}

// GetAccounts lists the user's bank accounts.
func (h *AccountHandler) GetAccounts(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Bad Request: ID must be a number")
	}

	if _, err := h.Users.GetUserByID(c.Context(), userID); err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return success(c, fiber.StatusOK, "User not found", nil)
		}
		return failFromErr(c, err)
	}

	accounts, err := h.Accounts.ListAccountsByUser(c.Context(), userID)
	if err != nil {
		return failFromErr(c, err)
	}
	if len(accounts) == 0 {
		return success(c, fiber.StatusOK, "Accounts not found", nil)
	}

	return success(c, fiber.StatusOK, "Data found", accounts)
}

// GetDetailAccount returns one bank account scoped to its owner.
func (h *AccountHandler) GetDetailAccount(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	accountID, err2 := strconv.ParseInt(c.Params("accountId"), 10, 64)
	if err != nil || err2 != nil {
		return fail(c, fiber.StatusBadRequest, "Bad Request: user id and account id must be numbers")
	}

	account, err := h.Accounts.GetAccountForUser(c.Context(), userID, accountID)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return success(c, fiber.StatusOK, "Account not found", nil)
		}
		return failFromErr(c, err)
	}

	return success(c, fiber.StatusOK, "Data found", account)
}
