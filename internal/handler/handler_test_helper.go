package handler

import (
	"context"
	"database/sql"
	"io"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"

	"memberly/internal/auth"
	"memberly/internal/middleware"
	"memberly/internal/model"
	"memberly/internal/render"
	"memberly/internal/session"
	"memberly/internal/store"
	"memberly/web"
)

// testDB creates an in-memory SQLite database with the required schema for testing.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// The pool must stay on a single connection or each new connection
	// would get its own empty in-memory database.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user',
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_login_at DATETIME
		);
		CREATE INDEX idx_users_email ON users(email);
		CREATE INDEX idx_users_role ON users(role);

		CREATE TABLE sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		);
		CREATE INDEX idx_sessions_expiry ON sessions(expiry);
	`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// testServer bundles the database and a running HTTP server wired the
// same way as the real application, minus CSRF and security headers.
type testServer struct {
	*httptest.Server
	db      *sql.DB
	queries *store.Queries
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := testDB(t)
	sm := session.New(db, true)

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("fs.Sub: %v", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sm,
	})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	authHandler := NewAuthHandler(db, renderer, sm)
	siteHandler := NewSiteHandler(renderer)
	adminHandler := NewAdminHandler(db, renderer)

	r := chi.NewRouter()
	r.Use(sm.LoadAndSave)
	r.Use(middleware.LoadSessionUser(sm))

	r.Get(RouteRoot, siteHandler.Home)
	r.Get(RouteSignup, authHandler.SignupForm)
	r.Post(RouteSignup, authHandler.Signup)
	r.Get(RouteLogin, authHandler.LoginForm)
	r.Post(RouteLogin, authHandler.Login)
	r.Get(RouteLogout, authHandler.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin())
		r.Get(RouteMembers, siteHandler.Members)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin())
		r.Use(middleware.FlagNonAdmin())
		r.Get(RouteAdmin, adminHandler.Dashboard)
		r.Get(RoutePromoteID, adminHandler.Promote)
		r.Get(RouteDemoteID, adminHandler.Demote)
	})

	r.NotFound(siteHandler.NotFound)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testServer{
		Server:  srv,
		db:      db,
		queries: store.New(db),
	}
}

// createTestUser creates a user with a real password hash.
func createTestUser(t *testing.T, ts *testServer, email, password, role string) model.User {
	t.Helper()

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	user, err := ts.queries.CreateUser(context.Background(), store.CreateUserParams{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Name:         "Test User",
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", email, err)
	}
	return user
}

// testClient is a cookie-holding client representing one browser session.
// The follow client chases redirects; the noFollow client returns them
// as-is so tests can assert on status and Location.
type testClient struct {
	follow   *http.Client
	noFollow *http.Client
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New: %v", err)
	}
	return &testClient{
		follow: &http.Client{Jar: jar},
		noFollow: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *testClient) get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := c.follow.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp, readBody(t, resp)
}

func (c *testClient) getNoRedirect(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := c.noFollow.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	readBody(t, resp)
	return resp
}

func (c *testClient) postForm(t *testing.T, url string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := c.follow.PostForm(url, form)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp, readBody(t, resp)
}

func (c *testClient) postFormNoRedirect(t *testing.T, url string, form url.Values) *http.Response {
	t.Helper()
	resp, err := c.noFollow.PostForm(url, form)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	readBody(t, resp)
	return resp
}

// login submits the login form and fails the test unless it lands on
// the members page.
func (c *testClient) login(t *testing.T, ts *testServer, email, password string) {
	t.Helper()

	resp, body := c.postForm(t, ts.URL+RouteLogin, url.Values{
		"email":    {email},
		"password": {password},
	})
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Members area") {
		t.Fatalf("login as %s did not reach the members page (status %d)", email, resp.StatusCode)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return string(b)
}
