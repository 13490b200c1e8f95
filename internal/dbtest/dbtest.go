// Package dbtest opens the integration test database. Tests that use it skip
// when no database is configured.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"volunteerhub/internal/crypto"
	"volunteerhub/internal/db"
	"volunteerhub/internal/model"
	"volunteerhub/internal/repository"
)

const Password = "password123"

// Open connects to VOLUNTEERHUB_TEST_DB (or DATABASE_URL), applies migrations
// and returns a store. The pool is closed when the test ends.
func Open(t testing.TB) *repository.Store {
	t.Helper()
	url := os.Getenv("VOLUNTEERHUB_TEST_DB")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		t.Skip("VOLUNTEERHUB_TEST_DB or DATABASE_URL not set")
		return nil
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, url)
	if err != nil {
		t.Skipf("db unavailable: %v", err)
		return nil
	}
	t.Cleanup(pool.Close)
	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate error: %v", err)
	}
	return repository.NewStore(pool, 5*time.Second)
}

// Account inserts an account with a unique email and the shared test password.
func Account(t testing.TB, store *repository.Store, role model.Role) model.Account {
	t.Helper()
	hash, err := crypto.HashPassword(Password)
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	id := uuid.NewString()
	account, err := store.CreateAccount(context.Background(), model.Account{
		Email:        "user-" + id + "@example.test",
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     string(role),
		Role:         role,
	})
	if err != nil {
		t.Fatalf("create account error: %v", err)
	}
	return account
}
