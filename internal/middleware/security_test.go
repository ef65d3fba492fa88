// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveWithHeaders(t *testing.T, cfg SecurityHeadersConfig) http.Header {
	t.Helper()

	handler := SecurityHeaders(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec.Header()
}

func TestSecurityHeaders_Development(t *testing.T) {
	h := serveWithHeaders(t, DefaultSecurityHeadersConfig(true))

	if csp := h.Get("Content-Security-Policy"); !strings.Contains(csp, "default-src 'self'") {
		t.Errorf("CSP = %q, should contain default-src 'self'", csp)
	}
	if h.Get("Strict-Transport-Security") != "" {
		t.Error("HSTS should be disabled in development")
	}
	if got := h.Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
	if got := h.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := h.Get("Referrer-Policy"); got != "strict-origin-when-cross-origin" {
		t.Errorf("Referrer-Policy = %q", got)
	}
}

func TestSecurityHeaders_Production(t *testing.T) {
	h := serveWithHeaders(t, DefaultSecurityHeadersConfig(false))

	hsts := h.Get("Strict-Transport-Security")
	if !strings.Contains(hsts, "max-age=31536000") {
		t.Errorf("HSTS = %q, should contain max-age=31536000", hsts)
	}
	if !strings.Contains(hsts, "includeSubDomains") {
		t.Errorf("HSTS = %q, should include subdomains in production", hsts)
	}
}

func TestSecurityHeaders_CustomCSP(t *testing.T) {
	cfg := DefaultSecurityHeadersConfig(true)
	cfg.ContentSecurityPolicy = "default-src 'none'"

	h := serveWithHeaders(t, cfg)
	if got := h.Get("Content-Security-Policy"); got != "default-src 'none'" {
		t.Errorf("CSP = %q, want %q", got, "default-src 'none'")
	}
}

func TestBuildCSP_Order(t *testing.T) {
	csp := buildCSP(map[string]string{
		"form-action": "'self'",
		"default-src": "'self'",
	})
	if csp != "default-src 'self'; form-action 'self'" {
		t.Errorf("buildCSP = %q", csp)
	}
}
