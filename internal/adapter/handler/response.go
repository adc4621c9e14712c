package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/onnyvergiean/basic-banking-system/internal/core/domain"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func success(c *fiber.Ctx, code int, message string, data any) error {
	return c.Status(code).JSON(Response{
		Status:  "success",
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func fail(c *fiber.Ctx, code int, message string) error {
	return c.Status(code).JSON(Response{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

// failFromErr maps a typed domain error to its HTTP status. Storage failures
// are logged with their cause and answered with a generic message.
func failFromErr(c *fiber.Ctx, err error) error {
	switch domain.KindOf(err) {
	case domain.KindInvalidArgument, domain.KindSameAccount, domain.KindInsufficientFunds:
		return fail(c, fiber.StatusBadRequest, domain.MessageOf(err))
	case domain.KindNotFound:
		return fail(c, fiber.StatusNotFound, domain.MessageOf(err))
	default:
		slog.Error("request failed", "error", err, "path", c.Path())
		return fail(c, fiber.StatusInternalServerError, "Internal server error")
	}
}
