// Package auth_repo provides PostgreSQL persistence for users.
package auth_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"medstock/internal/core/apperror"
	"medstock/internal/core/id"
	"medstock/internal/domain/auth"
	"medstock/internal/infrastructure/storage/postgres"
)

const usersTable = "sys_users"

// UserRepo implements auth.UserRepository.
type UserRepo struct {
	txManager *postgres.TxManager
}

// NewUserRepo creates a new user repository.
func NewUserRepo(txManager *postgres.TxManager) *UserRepo {
	return &UserRepo{txManager: txManager}
}

// Create creates a new user.
func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	q := r.txManager.GetQuerier(ctx)

	query := `
		INSERT INTO sys_users (
			id, email, password_hash, full_name,
			is_active, is_admin, roles,
			last_login_at, failed_login_attempts, locked_until,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := q.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FullName,
		user.IsActive, user.IsAdmin, user.Roles,
		user.LastLoginAt, user.FailedLoginAttempts, user.LockedUntil,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

const userSelect = `
	SELECT id, email, password_hash, full_name,
		   is_active, is_admin, roles,
		   last_login_at, failed_login_attempts, locked_until,
		   created_at, updated_at
	FROM sys_users
`

func (r *UserRepo) scanUser(row pgx.Row, key string) (*auth.User, error) {
	var user auth.User
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName,
		&user.IsActive, &user.IsAdmin, &user.Roles,
		&user.LastLoginAt, &user.FailedLoginAttempts, &user.LockedUntil,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewNotFound(usersTable, key)
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// GetByID retrieves user by ID.
func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	q := r.txManager.GetQuerier(ctx)
	row := q.QueryRow(ctx, userSelect+" WHERE id = $1", userID)
	return r.scanUser(row, userID.String())
}

// GetByEmail retrieves user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	q := r.txManager.GetQuerier(ctx)
	row := q.QueryRow(ctx, userSelect+" WHERE lower(email) = lower($1)", email)
	return r.scanUser(row, email)
}

// Update updates user data.
func (r *UserRepo) Update(ctx context.Context, user *auth.User) error {
	q := r.txManager.GetQuerier(ctx)

	query := `
		UPDATE sys_users SET
			email = $2, password_hash = $3, full_name = $4,
			is_active = $5, is_admin = $6, roles = $7,
			last_login_at = $8, failed_login_attempts = $9, locked_until = $10,
			updated_at = now()
		WHERE id = $1
	`

	result, err := q.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FullName,
		user.IsActive, user.IsAdmin, user.Roles,
		user.LastLoginAt, user.FailedLoginAttempts, user.LockedUntil,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(usersTable, user.ID.String())
	}

	return nil
}

// Exists checks if email is taken.
func (r *UserRepo) Exists(ctx context.Context, email string) (bool, error) {
	q := r.txManager.GetQuerier(ctx)

	var one int
	err := q.QueryRow(ctx, "SELECT 1 FROM sys_users WHERE lower(email) = lower($1)", email).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}

	return true, nil
}
