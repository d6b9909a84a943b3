package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("a user with that email already exists")
)

type Store interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	CreateAndInvite(ctx context.Context, user *User, hashedToken string, exp time.Duration) error
	Activate(ctx context.Context, hashedToken string) error
	Delete(ctx context.Context, id int64) error
	StoreRefreshToken(ctx context.Context, userID int64, token string) error
	ClearRefreshToken(ctx context.Context, userID int64) error
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	var u User
	err := r.db.QueryRow(ctx, `
SELECT id, name, email, password, role, is_active, refresh_token, created_at, updated_at
FROM users
WHERE id = $1
  AND is_active = true
`, id).Scan(&u.ID, &u.Name, &u.Email, &u.Password.hash, &u.Role, &u.IsActive, &u.RefreshToken, &u.CreatedAt, &u.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &u, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.QueryRow(ctx, `
SELECT id, name, email, password, role, is_active, refresh_token, created_at, updated_at
FROM users
WHERE email = $1
  AND is_active = true
`, email).Scan(&u.ID, &u.Name, &u.Email, &u.Password.hash, &u.Role, &u.IsActive, &u.RefreshToken, &u.CreatedAt, &u.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

// CreateAndInvite creates the (inactive) user and its activation invitation
// in one transaction, so a failed invite never leaves a stranded account.
func (r *Repository) CreateAndInvite(ctx context.Context, user *User, hashedToken string, exp time.Duration) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
INSERT INTO users (name, email, password, role)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, updated_at
`, user.Name, user.Email, user.Password.hash, user.Role).
			Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrDuplicateEmail
			}
			return fmt.Errorf("create user: %w", err)
		}

		_, err = tx.Exec(ctx, `
INSERT INTO user_invitations (token, user_id, expiry)
VALUES ($1, $2, $3)
`, hashedToken, user.ID, time.Now().Add(exp))
		if err != nil {
			return fmt.Errorf("create invitation: %w", err)
		}
		return nil
	})
}

// Activate flips the invited user to active and burns the invitation.
func (r *Repository) Activate(ctx context.Context, hashedToken string) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		var userID int64
		err := tx.QueryRow(ctx, `
SELECT user_id
FROM user_invitations
WHERE token = $1
  AND expiry > now()
`, hashedToken).Scan(&userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("find invitation: %w", err)
		}

		if _, err := tx.Exec(ctx, `
UPDATE users SET is_active = true, updated_at = now() WHERE id = $1
`, userID); err != nil {
			return fmt.Errorf("activate user: %w", err)
		}

		if _, err := tx.Exec(ctx, `
DELETE FROM user_invitations WHERE user_id = $1
`, userID); err != nil {
			return fmt.Errorf("delete invitation: %w", err)
		}
		return nil
	})
}

// Delete removes the user and any pending invitation; used to roll back a
// registration whose invitation email could not be sent.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_invitations WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("delete invitations: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *Repository) StoreRefreshToken(ctx context.Context, userID int64, token string) error {
	_, err := r.db.Exec(ctx, `
UPDATE users SET refresh_token = $2, updated_at = now() WHERE id = $1
`, userID, token)
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (r *Repository) ClearRefreshToken(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `
UPDATE users SET refresh_token = '', updated_at = now() WHERE id = $1
`, userID)
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}
