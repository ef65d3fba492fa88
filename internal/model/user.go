// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models shared across the application.
package model

import (
	"database/sql"
	"time"
)

// User roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ValidRoles contains all valid user roles.
var ValidRoles = []string{RoleUser, RoleAdmin}

// IsValidRole reports whether role is one of ValidRoles.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User represents a registered member. Email is the lookup identity and
// is unique across all records. Users are never deleted.
type User struct {
	ID           int64        `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Never expose in JSON
	Role         string       `json:"role"`
	Name         string       `json:"name"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	LastLoginAt  sql.NullTime `json:"last_login_at,omitempty"`
}

// IsAdmin returns true if the user has admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SessionUser is the snapshot of a user copied into the session at
// login time. Role and Name are not live-joined with the users table;
// a role change by an admin takes effect at the next login.
type SessionUser struct {
	ID            int64
	Name          string
	Role          string
	Authenticated bool
}

// IsAdmin returns true if the session snapshot carries the admin role.
func (u SessionUser) IsAdmin() bool {
	return u.Authenticated && u.Role == RoleAdmin
}
