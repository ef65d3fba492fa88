// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/alexedwards/scs/v2"

	"memberly/internal/auth"
	"memberly/internal/middleware"
	"memberly/internal/model"
	"memberly/internal/render"
	"memberly/internal/session"
	"memberly/internal/store"
)

// AuthHandler handles signup, login, and logout routes.
type AuthHandler struct {
	queries        *store.Queries
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager) *AuthHandler {
	return &AuthHandler{
		queries:        store.New(db),
		renderer:       renderer,
		sessionManager: sm,
	}
}

// SignupFormData holds the form values echoed back on validation errors.
type SignupFormData struct {
	Email string
	Name  string
}

// LoginFormData holds the form values echoed back on login errors.
type LoginFormData struct {
	Email string
}

// SignupForm renders the signup page.
func (h *AuthHandler) SignupForm(w http.ResponseWriter, r *http.Request) {
	h.renderSignup(w, r, http.StatusOK, SignupFormData{}, "")
}

// Signup handles the signup form submission. On success the new user
// gets the "user" role, the session is authenticated with the user
// snapshot, and the client is redirected to the members area.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderSignup(w, r, http.StatusOK, SignupFormData{}, "Invalid form data")
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	name := strings.TrimSpace(r.FormValue("name"))
	password := r.FormValue("password")

	form := SignupFormData{Email: email, Name: name}

	// Validate input; the first failing check re-renders the form.
	if msg := validateSignup(email, name, password); msg != "" {
		h.renderSignup(w, r, http.StatusOK, form, msg)
		return
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		h.renderSignup(w, r, http.StatusOK, form, genericErrorMessage)
		return
	}

	// The UNIQUE index on users.email enforces identity uniqueness, so
	// there is no check-then-insert race to worry about here.
	user, err := h.queries.CreateUser(r.Context(), store.CreateUserParams{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         model.RoleUser,
		Name:         name,
	})
	if err != nil {
		if store.IsDuplicateEmail(err) {
			h.renderSignup(w, r, http.StatusOK, form, "An account with this email already exists")
			return
		}
		slog.Error("failed to create user", "error", err)
		h.renderSignup(w, r, http.StatusOK, form, genericErrorMessage)
		return
	}

	if err := session.Authenticate(h.sessionManager, r.Context(), user); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}

	slog.Info("user signed up", "user_id", user.ID, "email", user.Email)
	http.Redirect(w, r, RouteMembers, http.StatusSeeOther)
}

// LoginForm renders the login page. Already-authenticated users are
// sent straight to the members area.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUser(r).Authenticated {
		http.Redirect(w, r, RouteMembers, http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, LoginFormData{}, "")
}

// Login handles the login form submission.
//
// The error messages distinguish an unknown email from a wrong
// password. That mirrors the original behavior on purpose; collapsing
// both into one message would change what users see.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, r, LoginFormData{}, "Invalid form data")
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	form := LoginFormData{Email: email}

	if email == "" || password == "" {
		h.renderLogin(w, r, form, "Email and password are required")
		return
	}

	user, err := h.queries.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Debug("login attempt for non-existent user", "email", email)
			h.renderLogin(w, r, form, "Email not found")
			return
		}
		slog.Error("database error during login", "error", err)
		h.renderLogin(w, r, form, genericErrorMessage)
		return
	}

	valid, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		// Malformed stored hash is a corruption/config problem, not a
		// wrong password.
		slog.Error("password check error", "error", err, "user_id", user.ID)
		h.renderLogin(w, r, form, genericErrorMessage)
		return
	}
	if !valid {
		slog.Debug("invalid password attempt", "email", email)
		h.renderLogin(w, r, form, "Incorrect password")
		return
	}

	// Re-hash password if it uses outdated parameters
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			if err := h.queries.UpdateUserPassword(r.Context(), user.ID, newHash); err != nil {
				slog.Error("failed to re-hash password", "error", err, "user_id", user.ID)
			} else {
				slog.Info("password re-hashed with updated parameters", "user_id", user.ID)
			}
		}
	}

	// Update last login timestamp
	if err := h.queries.UpdateUserLastLogin(r.Context(), user.ID); err != nil {
		slog.Error("failed to update last login time", "error", err, "user_id", user.ID)
		// Don't block login on this error
	}

	if err := session.Authenticate(h.sessionManager, r.Context(), user); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}

	slog.Info("user logged in", "user_id", user.ID, "email", user.Email)
	http.Redirect(w, r, RouteMembers, http.StatusSeeOther)
}

// Logout destroys the session and redirects to the homepage.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessionManager.GetInt64(r.Context(), session.KeyUserID)

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	slog.Info("user logged out", "user_id", userID)
	http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
}

// validateSignup returns the first validation error message, or "" when
// the input is acceptable.
func validateSignup(email, name, password string) string {
	if email == "" {
		return "Email is required"
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "Invalid email format"
	}
	if name == "" {
		return "Name is required"
	}
	if password == "" {
		return "Password is required"
	}
	return ""
}

func (h *AuthHandler) renderSignup(w http.ResponseWriter, r *http.Request, status int, form SignupFormData, errMsg string) {
	err := h.renderer.Render(w, r, "signup", status, render.TemplateData{
		Title: "Sign up",
		User:  middleware.GetUser(r),
		Data:  form,
		Error: errMsg,
	})
	if err != nil {
		logAndInternalError(w, "failed to render signup page", "error", err)
	}
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, form LoginFormData, errMsg string) {
	err := h.renderer.Render(w, r, "login", http.StatusOK, render.TemplateData{
		Title: "Log in",
		User:  middleware.GetUser(r),
		Data:  form,
		Error: errMsg,
	})
	if err != nil {
		logAndInternalError(w, "failed to render login page", "error", err)
	}
}
