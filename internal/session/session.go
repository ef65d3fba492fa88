package session

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"memberly/internal/model"
)

// Session keys for the user snapshot stored at login time. Role and name
// are copied from the user record and stay fixed until re-login.
const (
	KeyUserID   = "user_id"
	KeyUserName = "user_name"
	KeyUserRole = "user_role"
)

// New creates a new session manager configured with SQLite store.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()

	// Use SQLite store
	sm.Store = sqlite3store.New(db)

	// Configure session
	sm.Lifetime = 24 * time.Hour
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev // Secure cookies in production only

	return sm
}

// Authenticate renews the session token (fixation defense) and stores
// the user snapshot. The snapshot is what gates and pages see until the
// session is destroyed or the user logs in again.
func Authenticate(sm *scs.SessionManager, ctx context.Context, user model.User) error {
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}
	sm.Put(ctx, KeyUserID, user.ID)
	sm.Put(ctx, KeyUserName, user.Name)
	sm.Put(ctx, KeyUserRole, user.Role)
	return nil
}
