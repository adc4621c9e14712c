package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onnyvergiean/basic-banking-system/internal/core/domain"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// ProfileParams are the optional identity fields supplied at registration or
// profile update.
type ProfileParams struct {
	IdentityType   *string
	IdentityNumber *int64
	Address        *string
	ImageURL       *string
}

// CreateUser inserts a user and their profile in one transaction.
func (r *UserRepository) CreateUser(ctx context.Context, name, email, passwordHash string, profile ProfileParams) (*domain.User, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, domain.StorageFailure(err)
	}
	defer tx.Rollback(ctx)

	var user domain.User
	err = tx.QueryRow(ctx, `
		INSERT INTO users (name, email, password)
		VALUES ($1, $2, $3)
		RETURNING id, name, email, created_at
	`, name, email, passwordHash).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	if err != nil {
		return nil, domain.StorageFailure(err)
	}

	var p domain.Profile
	err = tx.QueryRow(ctx, `
		INSERT INTO profiles (user_id, identity_type, identity_number, address, image_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, identity_type, identity_number, address, image_url
	`, user.ID, profile.IdentityType, profile.IdentityNumber, profile.Address, profile.ImageURL).
		Scan(&p.ID, &p.UserID, &p.IdentityType, &p.IdentityNumber, &p.Address, &p.ImageURL)
	if err != nil {
		return nil, domain.StorageFailure(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.StorageFailure(err)
	}
	user.Profile = &p
	return &user, nil
}

// GetUserByEmail looks a user up by email, including the password hash for
// login checks.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.QueryRow(ctx, `
		SELECT id, name, email, password, reset_token, reset_token_expiry, created_at
		FROM users
		WHERE email = $1
	`, email).Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.ResetToken, &user.ResetTokenExpiry, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("user not found")
		}
		return nil, domain.StorageFailure(err)
	}
	return &user, nil
}

// GetUserByID returns a user with their profile.
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	var (
		user domain.User
		p    domain.Profile
	)
	err := r.db.QueryRow(ctx, `
		SELECT u.id, u.name, u.email, u.created_at,
		       p.id, p.user_id, p.identity_type, p.identity_number, p.address, p.image_url
		FROM users u
		JOIN profiles p ON p.user_id = u.id
		WHERE u.id = $1
	`, id).Scan(
		&user.ID, &user.Name, &user.Email, &user.CreatedAt,
		&p.ID, &p.UserID, &p.IdentityType, &p.IdentityNumber, &p.Address, &p.ImageURL,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("user not found")
		}
		return nil, domain.StorageFailure(err)
	}
	user.Profile = &p
	return &user, nil
}

// ListUsers returns a page of users filtered by a case-insensitive name
// search.
func (r *UserRepository) ListUsers(ctx context.Context, search string, page, limit int) ([]domain.User, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, name, email, created_at
		FROM users
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY id
		OFFSET $2 LIMIT $3
	`, search, (page-1)*limit, limit)
	if err != nil {
		return nil, domain.StorageFailure(err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt); err != nil {
			return nil, domain.StorageFailure(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageFailure(err)
	}
	return users, nil
}

// UpdateUser changes name, email and optionally the password hash.
func (r *UserRepository) UpdateUser(ctx context.Context, id int64, name, email string, passwordHash *string) (*domain.User, error) {
	var user domain.User
	err := r.db.QueryRow(ctx, `
		UPDATE users
		SET name = $2,
		    email = $3,
		    password = COALESCE($4, password)
		WHERE id = $1
		RETURNING id, name, email, created_at
	`, id, name, email, passwordHash).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("user not found")
		}
		return nil, domain.StorageFailure(err)
	}
	return &user, nil
}

// DeleteUser removes a user (profile and accounts cascade) and returns the
// deleted record.
func (r *UserRepository) DeleteUser(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	err := r.db.QueryRow(ctx, `
		DELETE FROM users
		WHERE id = $1
		RETURNING id, name, email, created_at
	`, id).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("user not found")
		}
		return nil, domain.StorageFailure(err)
	}
	return &user, nil
}

// SetResetToken stores the hashed password-reset token and its expiry.
func (r *UserRepository) SetResetToken(ctx context.Context, email, tokenHash string, expiry time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET reset_token = $2, reset_token_expiry = $3
		WHERE email = $1
	`, email, tokenHash, expiry)
	if err != nil {
		return domain.StorageFailure(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("user not found")
	}
	return nil
}

// ResetPassword replaces the password hash and clears the reset token.
func (r *UserRepository) ResetPassword(ctx context.Context, email, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET password = $2, reset_token = NULL, reset_token_expiry = NULL
		WHERE email = $1
	`, email, passwordHash)
	if err != nil {
		return domain.StorageFailure(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("user not found")
	}
	return nil
}

// GetProfile returns the profile of a user.
func (r *UserRepository) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, identity_type, identity_number, address, image_url
		FROM profiles
		WHERE user_id = $1
	`, userID).Scan(&p.ID, &p.UserID, &p.IdentityType, &p.IdentityNumber, &p.Address, &p.ImageURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("profile not found")
		}
		return nil, domain.StorageFailure(err)
	}
	return &p, nil
}

// UpdateProfile updates identity fields; the image URL changes only when a
// new one is supplied.
func (r *UserRepository) UpdateProfile(ctx context.Context, userID int64, params ProfileParams) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.QueryRow(ctx, `
		UPDATE profiles
		SET identity_type = $2,
		    identity_number = $3,
		    address = $4,
		    image_url = COALESCE($5, image_url)
		WHERE user_id = $1
		RETURNING id, user_id, identity_type, identity_number, address, image_url
	`, userID, params.IdentityType, params.IdentityNumber, params.Address, params.ImageURL).
		Scan(&p.ID, &p.UserID, &p.IdentityType, &p.IdentityNumber, &p.Address, &p.ImageURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("profile not found")
		}
		return nil, domain.StorageFailure(err)
	}
	return &p, nil
}

// SetProfileImage overwrites the profile image URL, nil resets to none.
func (r *UserRepository) SetProfileImage(ctx context.Context, userID int64, imageURL *string) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.QueryRow(ctx, `
		UPDATE profiles
		SET image_url = $2
		WHERE user_id = $1
		RETURNING id, user_id, identity_type, identity_number, address, image_url
	`, userID, imageURL).Scan(&p.ID, &p.UserID, &p.IdentityType, &p.IdentityNumber, &p.Address, &p.ImageURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("profile not found")
		}
		return nil, domain.StorageFailure(err)
	}
	return &p, nil
}
