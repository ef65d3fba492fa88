package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"memberly/internal/auth"
	"memberly/internal/model"
)

// testDB creates a temporary test database.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	// Create temp file for test database
	f, err := os.CreateTemp("", "memberly-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	f.Close()

	// Open database
	db, err := NewDB(dbPath)
	if err != nil {
		os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}

	// Run migrations
	if err := Migrate(db); err != nil {
		db.Close()
		os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	// Return cleanup function
	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}

	return db, cleanup
}

func createTestUser(t *testing.T, q *Queries, email, role string) model.User {
	t.Helper()

	user, err := q.CreateUser(context.Background(), CreateUserParams{
		Email:        email,
		PasswordHash: "hashed-password",
		Role:         role,
		Name:         "Test User",
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", email, err)
	}
	return user
}

func TestCreateUser(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	user, err := q.CreateUser(ctx, CreateUserParams{
		Email:        "test@example.com",
		PasswordHash: "hashed-password",
		Role:         model.RoleUser,
		Name:         "Test User",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if user.ID == 0 {
		t.Error("CreateUser should assign an ID")
	}
	if user.Email != "test@example.com" {
		t.Errorf("Email = %q, want %q", user.Email, "test@example.com")
	}
	if user.Role != model.RoleUser {
		t.Errorf("Role = %q, want %q", user.Role, model.RoleUser)
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set by the database")
	}
	if user.LastLoginAt.Valid {
		t.Error("LastLoginAt should be NULL for a new user")
	}
}

func TestCreateUser_InvalidRole(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	_, err := q.CreateUser(context.Background(), CreateUserParams{
		Email:        "test@example.com",
		PasswordHash: "hashed-password",
		Role:         "superuser",
		Name:         "Test User",
	})
	if err == nil {
		t.Fatal("CreateUser should reject a role outside the valid set")
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	createTestUser(t, q, "dup@example.com", model.RoleUser)

	_, err := q.CreateUser(context.Background(), CreateUserParams{
		Email:        "dup@example.com",
		PasswordHash: "other-hash",
		Role:         model.RoleUser,
		Name:         "Other User",
	})
	if err == nil {
		t.Fatal("second CreateUser with same email should fail")
	}
	if !IsDuplicateEmail(err) {
		t.Errorf("IsDuplicateEmail(%v) = false, want true", err)
	}
}

func TestIsDuplicateEmail_OtherErrors(t *testing.T) {
	if IsDuplicateEmail(nil) {
		t.Error("nil error should not be a duplicate email")
	}
	if IsDuplicateEmail(sql.ErrNoRows) {
		t.Error("sql.ErrNoRows should not be a duplicate email")
	}
	if IsDuplicateEmail(errors.New("UNIQUE constraint failed: sessions.token")) {
		t.Error("other UNIQUE violations should not be duplicate emails")
	}
}

func TestGetUserByEmail(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	created := createTestUser(t, q, "find@example.com", model.RoleUser)

	user, err := q.GetUserByEmail(context.Background(), "find@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("ID = %d, want %d", user.ID, created.ID)
	}
	if user.PasswordHash != "hashed-password" {
		t.Errorf("PasswordHash = %q, want %q", user.PasswordHash, "hashed-password")
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	_, err := q.GetUserByEmail(context.Background(), "missing@example.com")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("error = %v, want sql.ErrNoRows", err)
	}
}

func TestGetUserByID(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	created := createTestUser(t, q, "byid@example.com", model.RoleAdmin)

	user, err := q.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if user.Email != "byid@example.com" {
		t.Errorf("Email = %q, want %q", user.Email, "byid@example.com")
	}

	if _, err := q.GetUserByID(context.Background(), 99999); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("error for missing ID = %v, want sql.ErrNoRows", err)
	}
}

func TestUpdateUserRole(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	user := createTestUser(t, q, "role@example.com", model.RoleUser)

	// Promote
	if err := q.UpdateUserRole(ctx, user.ID, model.RoleAdmin); err != nil {
		t.Fatalf("UpdateUserRole(admin): %v", err)
	}
	got, err := q.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.Role != model.RoleAdmin {
		t.Errorf("Role = %q, want %q", got.Role, model.RoleAdmin)
	}

	// Setting the same role again succeeds (idempotent)
	if err := q.UpdateUserRole(ctx, user.ID, model.RoleAdmin); err != nil {
		t.Errorf("UpdateUserRole should be idempotent, got: %v", err)
	}

	// Demote
	if err := q.UpdateUserRole(ctx, user.ID, model.RoleUser); err != nil {
		t.Fatalf("UpdateUserRole(user): %v", err)
	}
	got, err = q.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.Role != model.RoleUser {
		t.Errorf("Role after demote = %q, want %q", got.Role, model.RoleUser)
	}
}

func TestUpdateUserRole_NotFound(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	err := New(db).UpdateUserRole(context.Background(), 99999, model.RoleAdmin)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("error = %v, want sql.ErrNoRows", err)
	}
}

func TestUpdateUserRole_InvalidRole(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	user := createTestUser(t, q, "badrole@example.com", model.RoleUser)

	if err := q.UpdateUserRole(context.Background(), user.ID, "editor"); err == nil {
		t.Fatal("UpdateUserRole should reject a role outside the valid set")
	}

	// Role unchanged
	got, err := q.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.Role != model.RoleUser {
		t.Errorf("Role = %q, want %q", got.Role, model.RoleUser)
	}
}

func TestUpdateUserPassword(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	user := createTestUser(t, q, "pw@example.com", model.RoleUser)

	if err := q.UpdateUserPassword(ctx, user.ID, "new-hash"); err != nil {
		t.Fatalf("UpdateUserPassword: %v", err)
	}

	got, err := q.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.PasswordHash != "new-hash" {
		t.Errorf("PasswordHash = %q, want %q", got.PasswordHash, "new-hash")
	}
}

func TestUpdateUserLastLogin(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	user := createTestUser(t, q, "login@example.com", model.RoleUser)

	if err := q.UpdateUserLastLogin(ctx, user.ID); err != nil {
		t.Fatalf("UpdateUserLastLogin: %v", err)
	}

	got, err := q.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if !got.LastLoginAt.Valid {
		t.Error("LastLoginAt should be set after UpdateUserLastLogin")
	}
}

func TestListUsers(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	users, err := q.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("ListUsers on empty table = %d users, want 0", len(users))
	}

	a := createTestUser(t, q, "a@example.com", model.RoleUser)
	b := createTestUser(t, q, "b@example.com", model.RoleAdmin)

	users, err = q.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("ListUsers = %d users, want 2", len(users))
	}
	if users[0].ID != a.ID || users[1].ID != b.ID {
		t.Errorf("ListUsers order = [%d, %d], want [%d, %d]", users[0].ID, users[1].ID, a.ID, b.ID)
	}
}

func TestCountUsers(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	n, err := q.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if n != 0 {
		t.Errorf("CountUsers = %d, want 0", n)
	}

	createTestUser(t, q, "one@example.com", model.RoleUser)
	createTestUser(t, q, "two@example.com", model.RoleUser)

	n, err = q.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if n != 2 {
		t.Errorf("CountUsers = %d, want 2", n)
	}
}

func TestSeed(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := Seed(ctx, db); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	q := New(db)
	admin, err := q.GetUserByEmail(ctx, DefaultAdminEmail)
	if err != nil {
		t.Fatalf("GetUserByEmail(admin): %v", err)
	}
	if admin.Role != model.RoleAdmin {
		t.Errorf("seeded admin role = %q, want %q", admin.Role, model.RoleAdmin)
	}

	valid, err := auth.CheckPassword(DefaultAdminPassword, admin.PasswordHash)
	if err != nil {
		t.Fatalf("CheckPassword: %v", err)
	}
	if !valid {
		t.Error("seeded admin password hash does not match default password")
	}

	// Seeding again is a no-op
	if err := Seed(ctx, db); err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	n, err := q.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if n != 1 {
		t.Errorf("CountUsers after double seed = %d, want 1", n)
	}
}
