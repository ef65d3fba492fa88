// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store provides the SQLite persistence layer: connection setup,
// migrations, and the user query set.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"memberly/internal/model"
)

// Queries wraps a database handle and exposes the user query set.
type Queries struct {
	db *sql.DB
}

// New creates a Queries instance bound to the given database.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

const userColumns = "id, email, password_hash, role, name, created_at, updated_at, last_login_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	return u, err
}

// GetUserByEmail returns the user with the given email.
// Returns sql.ErrNoRows if no such user exists.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ?", email)
	return scanUser(row)
}

// GetUserByID returns the user with the given ID.
// Returns sql.ErrNoRows if no such user exists.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// CreateUserParams holds the fields for creating a user.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Role         string
	Name         string
}

// CreateUser inserts a new user and returns the created record.
// The UNIQUE index on email enforces identity uniqueness; use
// IsDuplicateEmail to classify the resulting constraint error.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error) {
	if !model.IsValidRole(arg.Role) {
		return model.User{}, fmt.Errorf("invalid role: %q", arg.Role)
	}
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, role, name)
		VALUES (?, ?, ?, ?)
		RETURNING `+userColumns,
		arg.Email, arg.PasswordHash, arg.Role, arg.Name)
	return scanUser(row)
}

// UpdateUserRole sets the role of the user with the given ID. The update
// is idempotent. Returns sql.ErrNoRows if the user does not exist and an
// error for roles outside the valid set.
func (q *Queries) UpdateUserRole(ctx context.Context, id int64, role string) error {
	if !model.IsValidRole(role) {
		return fmt.Errorf("invalid role: %q", role)
	}
	res, err := q.db.ExecContext(ctx,
		"UPDATE users SET role = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", role, id)
	if err != nil {
		return fmt.Errorf("updating role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateUserPassword replaces the stored password hash for a user.
func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", passwordHash, id)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

// UpdateUserLastLogin records the time of the user's most recent login.
func (q *Queries) UpdateUserLastLogin(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE users SET last_login_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return nil
}

// ListUsers returns all users ordered by ID.
func (q *Queries) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsers returns the total number of user records.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

// IsDuplicateEmail reports whether err is the UNIQUE constraint violation
// raised when inserting a user with an email that already exists. The
// message check covers both the modernc and mattn SQLite drivers.
func IsDuplicateEmail(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: users.email")
}
