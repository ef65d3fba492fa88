// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"memberly/internal/model"
	"memberly/internal/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for user data.
const (
	ContextKeyUser   ContextKey = "user"
	ContextKeyDenied ContextKey = "permission_denied"
)

// LoadSessionUser creates middleware that copies the session snapshot
// (user id, name, role captured at login) into the request context.
// Anonymous requests get the zero SessionUser.
func LoadSessionUser(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.SessionUser{
				ID:   sm.GetInt64(r.Context(), session.KeyUserID),
				Name: sm.GetString(r.Context(), session.KeyUserName),
				Role: sm.GetString(r.Context(), session.KeyUserRole),
			}
			user.Authenticated = user.ID > 0

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser retrieves the session user snapshot from the request context.
// Returns the zero SessionUser if none was loaded.
func GetUser(r *http.Request) model.SessionUser {
	user, ok := r.Context().Value(ContextKeyUser).(model.SessionUser)
	if !ok {
		return model.SessionUser{}
	}
	return user
}

// RequireLogin creates middleware that requires an authenticated session.
// Unauthenticated requests are redirected to the login page; no further
// gate or handler runs for them.
func RequireLogin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !GetUser(r).Authenticated {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// FlagNonAdmin creates middleware that marks requests from non-admin
// users as permission-denied and lets them CONTINUE to the handler.
// The handler renders the in-page 403 view. This is intentionally
// asymmetric with RequireLogin, which redirects away: admin pages show
// a denial message in place rather than bouncing the user elsewhere.
func FlagNonAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if !user.IsAdmin() {
				slog.Warn("access denied",
					"status", http.StatusForbidden,
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", user.ID,
					"user_role", user.Role,
					"remote_addr", r.RemoteAddr,
				)
				ctx := context.WithValue(r.Context(), ContextKeyDenied, true)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// PermissionDenied reports whether the request was flagged by FlagNonAdmin.
func PermissionDenied(r *http.Request) bool {
	denied, ok := r.Context().Value(ContextKeyDenied).(bool)
	return ok && denied
}
