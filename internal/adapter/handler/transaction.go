package handler

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/onnyvergiean/basic-banking-system/internal/core/domain"
	"github.com/onnyvergiean/basic-banking-system/internal/core/transfer"
)

// TransferExecutor is implemented by the transfer engine.
type TransferExecutor interface {
	Execute(ctx context.Context, req transfer.Request) (*domain.Transaction, error)
}

// TransactionReader is the read side of the ledger.
type TransactionReader interface {
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
	GetTransactionDetail(ctx context.Context, id int64) (*domain.TransactionDetail, error)
}

type TransactionHandler struct {
	Engine TransferExecutor
	Repo   TransactionReader
}

// CreateTransaction moves funds between two bank accounts.
func (h *TransactionHandler) CreateTransaction(c *fiber.Ctx) error {
	var req transfer.Request
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest,
			"Bad Request: sourceAccountId, destinationAccountId, and amount must be numbers")
	}

	tx, err := h.Engine.Execute(c.Context(), req)
	if err != nil {
		return failFromErr(c, err)
	}

	return success(c, fiber.StatusCreated, "Transaction completed successfully", tx)
}

// GetTransactions lists the full ledger.
func (h *TransactionHandler) GetTransactions(c *fiber.Ctx) error {
	transactions, err := h.Repo.ListTransactions(c.Context())
	if err != nil {
		return failFromErr(c, err)
	}
	return success(c, fiber.StatusOK, "Data found", transactions)
}

// GetDetailTransaction returns one ledger entry with both parties.
//
// An absent id answers HTTP 200 with a not-found message, not 404. Existing
// clients depend on that shape, so it stays.
func (h *TransactionHandler) GetDetailTransaction(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Bad Request: transaction id must be a number")
	}

	detail, err := h.Repo.GetTransactionDetail(c.Context(), id)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return success(c, fiber.StatusOK, "Transaction not found", nil)
		}
		return failFromErr(c, err)
	}

	return success(c, fiber.StatusOK, "Data found", detail)
}
