// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"memberly/internal/middleware"
	"memberly/internal/model"
	"memberly/internal/render"
	"memberly/internal/store"
)

// AdminHandler handles the admin page and the promote/demote operations.
type AdminHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(db *sql.DB, renderer *render.Renderer) *AdminHandler {
	return &AdminHandler{
		queries:  store.New(db),
		renderer: renderer,
	}
}

// AdminPageData holds data for the admin page template.
type AdminPageData struct {
	Users []model.User
}

// Dashboard handles GET /admin - the full user list with role controls.
// Requests flagged by the admin gate still reach this handler and get
// the in-page 403 view with an empty user list.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if middleware.PermissionDenied(r) {
		h.renderForbidden(w, r)
		return
	}

	users, err := h.queries.ListUsers(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list users", "error", err)
		return
	}

	err = h.renderer.Render(w, r, "admin", http.StatusOK, render.TemplateData{
		Title: "Admin",
		User:  middleware.GetUser(r),
		Data:  AdminPageData{Users: users},
	})
	if err != nil {
		logAndInternalError(w, "failed to render admin page", "error", err)
	}
}

// Promote handles GET /promote/{id} - sets the user's role to admin.
func (h *AdminHandler) Promote(w http.ResponseWriter, r *http.Request) {
	h.setRole(w, r, model.RoleAdmin)
}

// Demote handles GET /demote/{id} - sets the user's role back to user.
func (h *AdminHandler) Demote(w http.ResponseWriter, r *http.Request) {
	h.setRole(w, r, model.RoleUser)
}

// setRole applies a role change and redirects back to the admin page.
// Flagged requests get the same in-page 403 view as the dashboard.
// Sessions issued before the change keep their snapshot role until the
// affected user logs in again.
func (h *AdminHandler) setRole(w http.ResponseWriter, r *http.Request, role string) {
	if middleware.PermissionDenied(r) {
		h.renderForbidden(w, r)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		flashError(w, r, h.renderer, RouteAdmin, "Invalid user ID")
		return
	}

	if err := h.queries.UpdateUserRole(r.Context(), id, role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			flashError(w, r, h.renderer, RouteAdmin, "User not found")
			return
		}
		slog.Error("failed to update user role", "error", err, "user_id", id, "role", role)
		flashError(w, r, h.renderer, RouteAdmin, genericErrorMessage)
		return
	}

	slog.Info("user role updated", "user_id", id, "role", role, "updated_by", middleware.GetUser(r).ID)
	flashSuccess(w, r, h.renderer, RouteAdmin, "User role updated")
}

// renderForbidden renders the admin page as a 403 with no user data.
func (h *AdminHandler) renderForbidden(w http.ResponseWriter, r *http.Request) {
	err := h.renderer.Render(w, r, "admin", http.StatusForbidden, render.TemplateData{
		Title: "Admin",
		User:  middleware.GetUser(r),
		Data:  AdminPageData{},
		Error: "You do not have permission to view this page",
	})
	if err != nil {
		logAndInternalError(w, "failed to render admin page", "error", err)
	}
}
