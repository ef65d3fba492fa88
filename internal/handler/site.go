// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"memberly/internal/middleware"
	"memberly/internal/render"
)

// SiteHandler handles the public and members pages.
type SiteHandler struct {
	renderer *render.Renderer
}

// NewSiteHandler creates a new SiteHandler.
func NewSiteHandler(renderer *render.Renderer) *SiteHandler {
	return &SiteHandler{renderer: renderer}
}

// Home renders the homepage.
func (h *SiteHandler) Home(w http.ResponseWriter, r *http.Request) {
	err := h.renderer.Render(w, r, "home", http.StatusOK, render.TemplateData{
		Title: "Home",
		User:  middleware.GetUser(r),
	})
	if err != nil {
		logAndInternalError(w, "failed to render home page", "error", err)
	}
}

// Members renders the members-only page. The login gate runs before
// this handler, so the session user is always authenticated here.
func (h *SiteHandler) Members(w http.ResponseWriter, r *http.Request) {
	err := h.renderer.Render(w, r, "members", http.StatusOK, render.TemplateData{
		Title: "Members",
		User:  middleware.GetUser(r),
	})
	if err != nil {
		logAndInternalError(w, "failed to render members page", "error", err)
	}
}

// NotFound renders the 404 page for unmatched routes.
func (h *SiteHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	err := h.renderer.Render(w, r, "404", http.StatusNotFound, render.TemplateData{
		Title: "Not Found",
		User:  middleware.GetUser(r),
	})
	if err != nil {
		logAndInternalError(w, "failed to render 404 page", "error", err)
	}
}
