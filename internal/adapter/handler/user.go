package handler

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/onnyvergiean/basic-banking-system/internal/adapter/middleware"
	"github.com/onnyvergiean/basic-banking-system/internal/adapter/storage"
	"github.com/onnyvergiean/basic-banking-system/internal/core/domain"
	"github.com/onnyvergiean/basic-banking-system/internal/core/security"
)

const defaultImageURL = "/images/default.png"

// UserAdminStore is the slice of the user repository the user handler needs.
type UserAdminStore interface {
	UserStore
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	ListUsers(ctx context.Context, search string, page, limit int) ([]domain.User, error)
	UpdateUser(ctx context.Context, id int64, name, email string, passwordHash *string) (*domain.User, error)
	DeleteUser(ctx context.Context, id int64) (*domain.User, error)
	GetProfile(ctx context.Context, userID int64) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID int64, params storage.ProfileParams) (*domain.Profile, error)
	SetProfileImage(ctx context.Context, userID int64, imageURL *string) (*domain.Profile, error)
}

type UserHandler struct {
	Users    UserAdminStore
	MediaDir string
}

type CreateUserRequest struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	IdentityType   *string `json:"identity_type"`
	IdentityNumber any     `json:"identity_number"`
	Address        *string `json:"address"`
}

// CreateUser creates a user together with their profile.
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Bad Request: invalid request body")
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return fail(c, fiber.StatusBadRequest, "Bad Request: name, email, and password are required")
	}

	identityNumber, ok := parseOptionalInt(req.IdentityNumber)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Bad Request: identity_number must be a number")
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

	image := defaultImageURL
	user, err := h.Users.CreateUser(c.Context(), req.Name, req.Email, hash, storage.ProfileParams{
		IdentityType:   req.IdentityType,
		IdentityNumber: identityNumber,
		Address:        req.Address,
		ImageURL:       &image,
	})
	if err != nil {
		return failFromErr(c, err)
	}

	return success(c, fiber.StatusCreated, "User created successfully", user)
}

// GetUsers lists users with name search and pagination.
// An empty result is answered 200 with a not-found message (compat shape).
func (h *UserHandler) GetUsers(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)

	users, err := h.Users.ListUsers(c.Context(), c.Query("search"), page, limit)
	if err != nil {
		return failFromErr(c, err)
	}
	if len(users) == 0 {
		return success(c, fiber.StatusOK, "Data not found", nil)
	}
	return success(c, fiber.StatusOK, "Data found", users)
}

// GetUserByID returns one user. Only the authenticated user may read their
// own record. A missing id answers 200 with a not-found message (compat
// shape).
func (h *UserHandler) GetUserByID(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Bad Request: ID must be a number")
	}

	user, err := h.Users.GetUserByID(c.Context(), id)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return success(c, fiber.StatusOK, "User not found", nil)
		}
		return failFromErr(c, err)
	}

	if claims := middleware.UserClaims(c); claims == nil || claims.UserID != user.ID {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized: you do not have permission to access this user")
	}

	return success(c, fiber.StatusOK, "Data found", user)
}

type UpdateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUser changes name/email and, when supplied, the password.
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Bad Request: ID must be a number")
	}
	if claims := middleware.UserClaims(c); claims == nil || claims.UserID != id {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized: you do not have permission to access this user")
	}

	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Bad Request: invalid request body")
	}

	var passwordHash *string
	if req.Password != "" {
		hash, err := security.HashPassword(req.Password)
		if err != nil {
			return failFromErr(c, err)
		}
		passwordHash = &hash
	}

	user, err := h.Users.UpdateUser(c.Context(), id, req.Name, req.Email, passwordHash)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return fail(c, fiber.StatusNotFound, "User not found")
		}
		return failFromErr(c, err)
	}

	return success(c, fiber.StatusOK, "User updated successfully", user)
}

// DeleteUser removes the authenticated user's own record.
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Bad Request: ID must be a number")
	}
	if claims := middleware.UserClaims(c); claims == nil || claims.UserID != id {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized: you do not have permission to access this user")
	}

	user, err := h.Users.DeleteUser(c.Context(), id)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return fail(c, fiber.StatusNotFound, "User not found")
		}
		return failFromErr(c, err)
	}

	return success(c, fiber.StatusOK, "User deleted successfully", user)
}

// UpdateProfile updates identity fields and optionally replaces the profile
// image (multipart form). The previous image file is removed from disk.
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	claims := middleware.UserClaims(c)
	if claims == nil {
		return fail(c, fiber.StatusUnauthorized, "you're not authorized!")
	}

	params := storage.ProfileParams{
		IdentityType: formValue(c, "identity_type"),
		Address:      formValue(c, "address"),
	}
	if raw := formValue(c, "identity_number"); raw != nil {
		n, err := strconv.ParseInt(*raw, 10, 64)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Bad Request: identity_number must be a number")
		}
		params.IdentityNumber = &n
	}

	current, err := h.Users.GetProfile(c.Context(), claims.UserID)
	if err != nil {
		return failFromErr(c, err)
	}

	if file, err := c.FormFile("image"); err == nil {
		imageURL, err := saveUpload(c, file, h.MediaDir, "images", imageMimeTypes)
		if err != nil {
			return failFromErr(c, err)
		}
		params.ImageURL = &imageURL
	}

	profile, err := h.Users.UpdateProfile(c.Context(), claims.UserID, params)
	if err != nil {
		return failFromErr(c, err)
	}

	if params.ImageURL != nil {
		h.removeStoredImage(current.ImageURL)
	}

	return success(c, fiber.StatusOK, "Profile information and image updated successfully", profile)
}

// DeleteProfileImage resets the profile image to the default one.
func (h *UserHandler) DeleteProfileImage(c *fiber.Ctx) error {
	claims := middleware.UserClaims(c)
	if claims == nil {
		return fail(c, fiber.StatusUnauthorized, "you're not authorized!")
	}

	current, err := h.Users.GetProfile(c.Context(), claims.UserID)
	if err != nil {
		return failFromErr(c, err)
	}

	image := defaultImageURL
	profile, err := h.Users.SetProfileImage(c.Context(), claims.UserID, &image)
	if err != nil {
		return failFromErr(c, err)
	}

	h.removeStoredImage(current.ImageURL)

	return success(c, fiber.StatusOK, "Profile image deleted, set to default image successfully", profile)
}

// removeStoredImage deletes an uploaded image file from disk. The default
// image is shared and never removed.
func (h *UserHandler) removeStoredImage(imageURL *string) {
	if imageURL == nil || *imageURL == defaultImageURL {
		return
	}
	rel := strings.TrimPrefix(*imageURL, "/")
	if err := os.Remove(filepath.Join(h.MediaDir, filepath.FromSlash(rel))); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove old profile image", "error", err, "image", *imageURL)
	}
}

func formValue(c *fiber.Ctx, key string) *string {
	v := c.FormValue(key)
	if v == "" {
		return nil
	}
	return &v
}

func parseOptionalInt(v any) (*int64, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case string:
		if t == "" {
			return nil, true
		}
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return nil, false
		}
		return &n, true
	case float64:
		n := int64(t)
		if float64(n) != t {
			return nil, false
		}
		return &n, true
	default:
		return nil, false
	}
}
