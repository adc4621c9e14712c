package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnyvergiean/basic-banking-system/internal/adapter/middleware"
	"github.com/onnyvergiean/basic-banking-system/internal/adapter/storage"
	"github.com/onnyvergiean/basic-banking-system/internal/core/domain"
	"github.com/onnyvergiean/basic-banking-system/internal/core/security"
)

type fakeAdminStore struct {
	*fakeUserStore
	profiles map[int64]*domain.Profile
}

func newFakeAdminStore() *fakeAdminStore {
	return &fakeAdminStore{
		fakeUserStore: newFakeUserStore(),
		profiles:      map[int64]*domain.Profile{},
	}
}

func (f *fakeAdminStore) CreateUser(ctx context.Context, name, email, passwordHash string, profile storage.ProfileParams) (*domain.User, error) {
	u, err := f.fakeUserStore.CreateUser(ctx, name, email, passwordHash, profile)
	if err != nil {
		return nil, err
	}
	f.profiles[u.ID] = &domain.Profile{
		ID:             u.ID,
		UserID:         u.ID,
		IdentityType:   profile.IdentityType,
		IdentityNumber: profile.IdentityNumber,
		Address:        profile.Address,
		ImageURL:       profile.ImageURL,
	}
	u.Profile = f.profiles[u.ID]
	return u, nil
}

func (f *fakeAdminStore) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.NotFound("user not found")
}

func (f *fakeAdminStore) ListUsers(_ context.Context, search string, page, limit int) ([]domain.User, error) {
	var users []domain.User
	for _, u := range f.byEmail {
		if search == "" || strings.Contains(strings.ToLower(u.Name), strings.ToLower(search)) {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	offset := (page - 1) * limit
	if offset >= len(users) {
		return nil, nil
	}
	end := offset + limit
	if end > len(users) {
		end = len(users)
	}
	return users[offset:end], nil
}

func (f *fakeAdminStore) UpdateUser(ctx context.Context, id int64, name, email string, passwordHash *string) (*domain.User, error) {
	u, err := f.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	delete(f.byEmail, u.Email)
	u.Name, u.Email = name, email
	if passwordHash != nil {
		u.Password = *passwordHash
	}
	f.byEmail[u.Email] = u
	return u, nil
}

func (f *fakeAdminStore) DeleteUser(ctx context.Context, id int64) (*domain.User, error) {
	u, err := f.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	delete(f.byEmail, u.Email)
	delete(f.profiles, id)
	return u, nil
}

func (f *fakeAdminStore) GetProfile(_ context.Context, userID int64) (*domain.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, domain.NotFound("profile not found")
	}
	return p, nil
}

func (f *fakeAdminStore) UpdateProfile(_ context.Context, userID int64, params storage.ProfileParams) (*domain.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, domain.NotFound("profile not found")
	}
	if params.IdentityType != nil {
		p.IdentityType = params.IdentityType
	}
	if params.IdentityNumber != nil {
		p.IdentityNumber = params.IdentityNumber
	}
	if params.Address != nil {
		p.Address = params.Address
	}
	if params.ImageURL != nil {
		p.ImageURL = params.ImageURL
	}
	return p, nil
}

func (f *fakeAdminStore) SetProfileImage(_ context.Context, userID int64, imageURL *string) (*domain.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, domain.NotFound("profile not found")
	}
	p.ImageURL = imageURL
	return p, nil
}

func newUserApp(t *testing.T, users *fakeAdminStore) *fiber.App {
	t.Helper()
	app := fiber.New()
	h := &UserHandler{Users: users, MediaDir: t.TempDir()}
	private := app.Group("/v1/users", middleware.Protected(testSecret))
	private.Post("/", h.CreateUser)
	private.Get("/", h.GetUsers)
	private.Get("/:id", h.GetUserByID)
	private.Put("/:id", h.UpdateUser)
	private.Delete("/:id", h.DeleteUser)
	return app
}

// seedUser inserts a user straight into the fake store and returns their JWT.
func seedUser(t *testing.T, users *fakeAdminStore, name, email string) (*domain.User, string) {
	t.Helper()
	hash, err := security.HashPassword("hunter22")
	require.NoError(t, err)
	u, err := users.CreateUser(context.Background(), name, email, hash, storage.ProfileParams{})
	require.NoError(t, err)
	token, err := security.SignJWT(testSecret, u.ID, u.Name, u.Email)
	require.NoError(t, err)
	return u, token
}

func doAuthedJSON(t *testing.T, app *fiber.App, method, target, token string, body any) (*http.Response, Response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp, decodeResponse(t, resp)
}

func TestCreateUserWithProfile(t *testing.T) {
	users := newFakeAdminStore()
	app := newUserApp(t, users)
	_, token := seedUser(t, users, "Admin", "admin@example.com")

	resp, envelope := doAuthedJSON(t, app, http.MethodPost, "/v1/users/", token, map[string]any{
		"name":            "Onny",
		"email":           "onny@example.com",
		"password":        "hunter22",
		"identity_type":   "KTP",
		"identity_number": 3175012345678901,
		"address":         "Jakarta",
	})

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "User created successfully", envelope.Message)

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	profile, ok := data["profile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "KTP", profile["identity_type"])
	// new users get the shared default avatar
	assert.Equal(t, defaultImageURL, profile["image_url"])
}

func TestCreateUserBadIdentityNumber(t *testing.T) {
	users := newFakeAdminStore()
	app := newUserApp(t, users)
	_, token := seedUser(t, users, "Admin", "admin@example.com")

	resp, envelope := doAuthedJSON(t, app, http.MethodPost, "/v1/users/", token, map[string]any{
		"name":            "Onny",
		"email":           "onny@example.com",
		"password":        "hunter22",
		"identity_number": "not-a-number",
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Bad Request: identity_number must be a number", envelope.Message)
}

func TestGetUsersEmptyIs200(t *testing.T) {
	users := newFakeAdminStore()
	app := newUserApp(t, users)
	_, token := seedUser(t, users, "Admin", "admin@example.com")

	resp, envelope := doAuthedJSON(t, app, http.MethodGet, "/v1/users/?search=nobody", token, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", envelope.Status)
	assert.Equal(t, "Data not found", envelope.Message)
	assert.Nil(t, envelope.Data)
}

func TestGetUsersSearchAndPagination(t *testing.T) {
	users := newFakeAdminStore()
	app := newUserApp(t, users)
	_, token := seedUser(t, users, "Alice", "alice@example.com")
	seedUser(t, users, "Alicia", "alicia@example.com")
	seedUser(t, users, "Bob", "bob@example.com")

	resp, envelope := doAuthedJSON(t, app, http.MethodGet, "/v1/users/?search=ali&page=1&limit=1", token, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data, ok := envelope.Data.([]any)
	require.True(t, ok)
	assert.Len(t, data, 1)
}

func TestGetUserByIDOwnRecord(t *testing.T) {
	users := newFakeAdminStore()
	app := newUserApp(t, users)
	u, token := seedUser(t, users, "Onny", "onny@example.com")

	resp, envelope := doAuthedJSON(t, app, http.MethodGet, fmt.Sprintf("/v1/users/%d", u.ID), token, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "onny@example.com", data["email"])
}

func TestGetUserByIDForeignRecordIs401(t *testing.T) {
	users := newFakeAdminStore()
	app := newUserApp(t, users)
	_, token := seedUser(t, users, "Onny", "onny@example.com")
	other, _ := seedUser(t, users, "Other", "other@example.com")

	resp, envelope := doAuthedJSON(t, app, http.MethodGet, fmt.Sprintf("/v1/users/%d", other.ID), token, nil)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized: you do not have permission to access this user", envelope.Message)
}

func TestGetUserByIDMissingIs200(t *testing.T) {
	users := newFakeAdminStore()
	app := newUserApp(t, users)
	_, token := seedUser(t, users, "Onny", "onny@example.com")

	resp, envelope := doAuthedJSON(t, app, http.MethodGet, "/v1/users/9999", token, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", envelope.Status)
	assert.Equal(t, "User not found", envelope.Message)
}

func TestUpdateUser(t *testing.T) {
	users := newFakeAdminStore()
	app := newUserApp(t, users)
	u, token := seedUser(t, users, "Onny", "onny@example.com")

	resp, envelope := doAuthedJSON(t, app, http.MethodPut, fmt.Sprintf("/v1/users/%d", u.ID), token, map[string]string{
		"name":  "Onny V",
		"email": "onny.v@example.com",
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "User updated successfully", envelope.Message)
	assert.Equal(t, "Onny V", users.byEmail["onny.v@example.com"].Name)
}

func TestUpdateUserForeignRecordIs401(t *testing.T) {
	users := newFakeAdminStore()
	app := newUserApp(t, users)
	_, token := seedUser(t, users, "Onny", "onny@example.com")
	other, _ := seedUser(t, users, "Other", "other@example.com")

	resp, _ := doAuthedJSON(t, app, http.MethodPut, fmt.Sprintf("/v1/users/%d", other.ID), token, map[string]string{
		"name":  "Hijacked",
		"email": "other@example.com",
	})

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Other", other.Name)
}

func TestDeleteUser(t *testing.T) {
	users := newFakeAdminStore()
	app := newUserApp(t, users)
	u, token := seedUser(t, users, "Onny", "onny@example.com")

	resp, envelope := doAuthedJSON(t, app, http.MethodDelete, fmt.Sprintf("/v1/users/%d", u.ID), token, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "User deleted successfully", envelope.Message)
	assert.NotContains(t, users.byEmail, "onny@example.com")

	// a second delete finds nothing
	resp, envelope = doAuthedJSON(t, app, http.MethodDelete, fmt.Sprintf("/v1/users/%d", u.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "User not found", envelope.Message)
}
