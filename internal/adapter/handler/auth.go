package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/onnyvergiean/basic-banking-system/internal/adapter/middleware"
	"github.com/onnyvergiean/basic-banking-system/internal/adapter/storage"
	"github.com/onnyvergiean/basic-banking-system/internal/core/domain"
	"github.com/onnyvergiean/basic-banking-system/internal/core/notifications"
	"github.com/onnyvergiean/basic-banking-system/internal/core/security"
)

const resetTokenTTL = time.Hour

// UserStore is the slice of the user repository the auth handler needs.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, name, email, passwordHash string, profile storage.ProfileParams) (*domain.User, error)
	SetResetToken(ctx context.Context, email, tokenHash string, expiry time.Time) error
	ResetPassword(ctx context.Context, email, passwordHash string) error
}

// MailQueue enqueues transactional email for the outbox worker.
type MailQueue interface {
	Enqueue(ctx context.Context, recipient, subject, body string) error
}

type AuthHandler struct {
	Users     UserStore
	Mail      MailQueue
	JWTSecret string
	BaseURL   string
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a user with an empty profile and answers with a JWT.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Bad Request: invalid request body")
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return fail(c, fiber.StatusBadRequest, "Bad Request: name, email, and password are required")
	}

	if _, err := h.Users.GetUserByEmail(c.Context(), req.Email); err == nil {
		return fail(c, fiber.StatusBadRequest, "Email is already registered")
	} else if domain.KindOf(err) != domain.KindNotFound {
		return failFromErr(c, err)
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return failFromErr(c, err)
	}

	user, err := h.Users.CreateUser(c.Context(), req.Name, req.Email, hash, storage.ProfileParams{})
	if err != nil {
		return failFromErr(c, err)
	}

	h.queueMail(c.Context(), user.Email, "Welcome", func() (string, error) {
		return notifications.RenderRegistration(user.Name)
	})

	token, err := security.SignJWT(h.JWTSecret, user.ID, user.Name, user.Email)
	if err != nil {
		return failFromErr(c, err)
	}

	return success(c, fiber.StatusCreated, "Registered successfully", fiber.Map{
		"user":  user,
		"token": token,
	})
}

// Login checks credentials and issues a JWT.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Bad Request: invalid request body")
	}

	user, err := h.Users.GetUserByEmail(c.Context(), req.Email)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return fail(c, fiber.StatusNotFound, "User not found")
		}
		return failFromErr(c, err)
	}

	if !security.CheckPassword(req.Password, user.Password) {
		return fail(c, fiber.StatusUnauthorized, "Wrong password")
	}

	token, err := security.SignJWT(h.JWTSecret, user.ID, user.Name, user.Email)
	if err != nil {
		return failFromErr(c, err)
	}

	return success(c, fiber.StatusCreated, "Logged in successfully", fiber.Map{
		"user":  user,
		"token": token,
	})
}

// Whoami echoes the verified token claims.
func (h *AuthHandler) Whoami(c *fiber.Ctx) error {
	return success(c, fiber.StatusOK, "OK", middleware.UserClaims(c))
}

// ForgotPassword stores a hashed reset token and mails the reset link.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return fail(c, fiber.StatusBadRequest, "Bad Request: email is required")
	}

	user, err := h.Users.GetUserByEmail(c.Context(), req.Email)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return fail(c, fiber.StatusNotFound, "User not found")
		}
		return failFromErr(c, err)
	}

	token, tokenHash, err := security.GenerateResetToken()
	if err != nil {
		return failFromErr(c, err)
	}

	expiry := time.Now().Add(resetTokenTTL)
	if err := h.Users.SetResetToken(c.Context(), user.Email, tokenHash, expiry); err != nil {
		return failFromErr(c, err)
	}

	resetURL := fmt.Sprintf("%s/reset-password?email=%s&token=%s",
		h.BaseURL, url.QueryEscape(user.Email), url.QueryEscape(token))
	h.queueMail(c.Context(), user.Email, "Password Reset", func() (string, error) {
		return notifications.RenderResetPassword(user.Name, resetURL)
	})

	return success(c, fiber.StatusOK, "Reset password email sent successfully", nil)
}

// ResetPassword validates the mailed token and replaces the password.
// Email and token may arrive in the body or, when following the mailed link,
// as query parameters.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Bad Request: invalid request body")
	}
	if req.Email == "" {
		req.Email = c.Query("email")
	}
	if req.Token == "" {
		req.Token = c.Query("token")
	}
	if req.Email == "" || req.Token == "" || req.Password == "" {
		return fail(c, fiber.StatusBadRequest, "Bad Request: email, token, and password are required")
	}

	user, err := h.Users.GetUserByEmail(c.Context(), req.Email)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return fail(c, fiber.StatusNotFound, "User not found")
		}
		return failFromErr(c, err)
	}

	if user.ResetToken == nil || !security.CompareResetToken(req.Token, *user.ResetToken) {
		return fail(c, fiber.StatusBadRequest, "Bad Request: token is invalid")
	}
	if user.ResetTokenExpiry == nil || time.Now().After(*user.ResetTokenExpiry) {
		return fail(c, fiber.StatusBadRequest, "Bad Request: token is expired, please request a new one")
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return failFromErr(c, err)
	}
	if err := h.Users.ResetPassword(c.Context(), user.Email, hash); err != nil {
		return failFromErr(c, err)
	}

	h.queueMail(c.Context(), user.Email, "Password Reset Successful", func() (string, error) {
		return notifications.RenderResetSuccess(user.Name)
	})

	return success(c, fiber.StatusOK, "Password reset successfully", nil)
}

// queueMail renders and enqueues a message. Mail problems are logged, never
// returned: the originating request already succeeded.
func (h *AuthHandler) queueMail(ctx context.Context, recipient, subject string, render func() (string, error)) {
	body, err := render()
	if err != nil {
		slog.Error("Failed to render email", "error", err, "recipient", recipient)
		return
	}
	if err := h.Mail.Enqueue(ctx, recipient, subject, body); err != nil {
		slog.Error("Failed to queue email", "error", err, "recipient", recipient)
	}
}
