package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"volunteerhub/internal/apperr"
	"volunteerhub/internal/dbtest"
	"volunteerhub/internal/model"
)

func newTestManager(t *testing.T) *Manager {
	store := dbtest.Open(t)
	return NewManager(store, Options{Secret: "test-secret", Issuer: "test-issuer", TTL: time.Hour})
}

func TestPrincipalHasRole(t *testing.T) {
	p := Principal{Role: model.RoleStaff}
	if !p.HasRole(model.RoleAdmin, model.RoleStaff) {
		t.Fatalf("expected staff to match")
	}
	if p.HasRole(model.RoleAdmin) {
		t.Fatalf("expected admin-only check to fail")
	}
}

func TestNilCacheIsNoop(t *testing.T) {
	c := newCache(nil, time.Minute)
	if c != nil {
		t.Fatalf("expected nil cache without a client")
	}
	if _, ok := c.get(context.Background(), "hash"); ok {
		t.Fatalf("expected miss on nil cache")
	}
	c.put(context.Background(), "hash", Principal{}, time.Now())
	c.forget(context.Background(), "account")
}

func TestValidateRejectsGarbage(t *testing.T) {
	m := NewManager(nil, Options{Secret: "s", Issuer: "i"})
	if _, err := m.Validate(context.Background(), ""); apperr.KindOf(err) != apperr.Unauthenticated {
		t.Fatalf("expected unauthenticated for empty token, got %v", err)
	}
	if _, err := m.Validate(context.Background(), "not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestIssueKeepsSingleValidToken(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	account := dbtest.Account(t, m.store, model.RoleStudent)

	first, err := m.Issue(ctx, account.ID, ClientInfo{UserAgent: "test"})
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if _, err := m.Validate(ctx, first.Token); err != nil {
		t.Fatalf("expected first token valid: %v", err)
	}

	second, err := m.Issue(ctx, account.ID, ClientInfo{})
	if err != nil {
		t.Fatalf("second issue error: %v", err)
	}
	if _, err := m.Validate(ctx, first.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected first token invalidated, got %v", err)
	}
	p, err := m.Validate(ctx, second.Token)
	if err != nil {
		t.Fatalf("expected second token valid: %v", err)
	}
	if p.AccountID != account.ID || p.Role != model.RoleStudent {
		t.Fatalf("unexpected principal %+v", p)
	}

	tokens, err := m.store.ListAccountTokens(ctx, account.ID)
	if err != nil {
		t.Fatalf("list tokens error: %v", err)
	}
	valid := 0
	for _, token := range tokens {
		if token.Valid(time.Now()) {
			valid++
		}
	}
	if valid != 1 {
		t.Fatalf("expected exactly one valid token, got %d", valid)
	}
}

func TestConcurrentIssueLeavesOneValidToken(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	account := dbtest.Account(t, m.store, model.RoleStudent)

	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func() {
			_, err := m.Issue(ctx, account.ID, ClientInfo{})
			errs <- err
		}()
	}
	for i := 0; i < 5; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("issue error: %v", err)
		}
	}
	stats, err := m.store.ListAccountTokens(ctx, account.ID)
	if err != nil {
		t.Fatalf("list tokens error: %v", err)
	}
	valid := 0
	for _, token := range stats {
		if token.Valid(time.Now()) {
			valid++
		}
	}
	if valid != 1 {
		t.Fatalf("expected one valid token after concurrent logins, got %d", valid)
	}
}

func TestRevokeAndRevokeAll(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	account := dbtest.Account(t, m.store, model.RoleStudent)

	issued, err := m.Issue(ctx, account.ID, ClientInfo{})
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if err := m.Revoke(ctx, issued.Token); err != nil {
		t.Fatalf("revoke error: %v", err)
	}
	if _, err := m.Validate(ctx, issued.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected revoked token to fail, got %v", err)
	}
	if err := m.Revoke(ctx, issued.Token); err != nil {
		t.Fatalf("expected repeated revoke to succeed: %v", err)
	}

	if _, err := m.Issue(ctx, account.ID, ClientInfo{}); err != nil {
		t.Fatalf("issue error: %v", err)
	}
	n, err := m.RevokeAll(ctx, account.ID)
	if err != nil {
		t.Fatalf("revoke all error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 revoked token, got %d", n)
	}
}

func TestIssueRefusesBannedAccount(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	account := dbtest.Account(t, m.store, model.RoleStudent)
	if err := m.store.MarkBanned(ctx, account.ID); err != nil {
		t.Fatalf("mark banned error: %v", err)
	}
	if _, err := m.Issue(ctx, account.ID, ClientInfo{}); !errors.Is(err, ErrAccountBanned) {
		t.Fatalf("expected account banned, got %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	account := dbtest.Account(t, m.store, model.RoleStudent)

	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	issued, err := m.Issue(ctx, account.ID, ClientInfo{})
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	m.now = time.Now
	if _, err := m.Validate(ctx, issued.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}

	if _, err := m.Cleanup(ctx); err != nil {
		t.Fatalf("cleanup error: %v", err)
	}
	tokens, err := m.store.ListAccountTokens(ctx, account.ID)
	if err != nil {
		t.Fatalf("list tokens error: %v", err)
	}
	if len(tokens) != 0 {
		t.Fatalf("expected expired token cleaned up, got %d", len(tokens))
	}
}
