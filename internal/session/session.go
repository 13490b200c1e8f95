// Package session issues, validates and revokes bearer tokens. Every token is a
// signed JWT whose SHA-256 hash is persisted, so one lookup path decides
// validity and every token can be revoked individually.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"volunteerhub/internal/apperr"
	"volunteerhub/internal/auth"
	"volunteerhub/internal/crypto"
	"volunteerhub/internal/metrics"
	"volunteerhub/internal/model"
	"volunteerhub/internal/repository"
)

var (
	ErrAccountBanned = apperr.Denied("account is banned")
	ErrInvalidToken  = apperr.Unauthorized("invalid or expired token")
)

type Options struct {
	Secret   string
	Issuer   string
	TTL      time.Duration
	Redis    *redis.Client
	CacheTTL time.Duration
}

type Manager struct {
	store  *repository.Store
	secret string
	issuer string
	ttl    time.Duration
	cache  *cache
	now    func() time.Time
}

func NewManager(store *repository.Store, opts Options) *Manager {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Manager{
		store:  store,
		secret: opts.Secret,
		issuer: opts.Issuer,
		ttl:    ttl,
		cache:  newCache(opts.Redis, opts.CacheTTL),
		now:    time.Now,
	}
}

// Principal is the identity attached to an authenticated request.
type Principal struct {
	AccountID string     `json:"account_id"`
	Role      model.Role `json:"role"`
	TokenID   string     `json:"token_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
}

func (p Principal) HasRole(roles ...model.Role) bool {
	for _, role := range roles {
		if p.Role == role {
			return true
		}
	}
	return false
}

type ClientInfo struct {
	UserAgent string
	IPAddress string
}

type Issued struct {
	Token     string
	ExpiresAt time.Time
	Account   model.Account
}

// Issue invalidates every earlier token of the account and persists a new one,
// all in one transaction holding the account row lock.
func (m *Manager) Issue(ctx context.Context, accountID string, client ClientInfo) (Issued, error) {
	var issued Issued
	err := m.store.WithTx(ctx, func(tx *repository.Store) error {
		var err error
		issued, err = m.IssueIn(ctx, tx, accountID, client)
		return err
	})
	if err != nil {
		return Issued{}, err
	}
	m.cache.forget(ctx, accountID)
	return issued, nil
}

// IssueIn is Issue on a caller-owned transaction.
func (m *Manager) IssueIn(ctx context.Context, tx *repository.Store, accountID string, client ClientInfo) (Issued, error) {
	now := m.now().UTC()
	account, err := tx.LockAccount(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return Issued{}, apperr.Missing("account not found")
	}
	if err != nil {
		return Issued{}, err
	}
	if account.IsBanned {
		return Issued{}, ErrAccountBanned
	}

	tokenID := uuid.NewString()
	signed, err := auth.NewToken(m.secret, m.issuer, tokenID, m.ttl, now, auth.Claims{
		AccountID: account.ID,
		Role:      string(account.Role),
	})
	if err != nil {
		return Issued{}, err
	}

	revoked, err := tx.InvalidateAccountTokens(ctx, account.ID, now)
	if err != nil {
		return Issued{}, err
	}
	expiresAt := now.Add(m.ttl)
	if err := tx.InsertToken(ctx, model.SessionToken{
		ID:        tokenID,
		AccountID: account.ID,
		TokenHash: crypto.HashToken(signed),
		IssuedAt:  now,
		ExpiresAt: &expiresAt,
		UserAgent: optional(client.UserAgent),
		IPAddress: optional(client.IPAddress),
	}); err != nil {
		return Issued{}, err
	}

	metrics.TokensIssued.Inc()
	metrics.TokensRevoked.Add(float64(revoked))
	return Issued{Token: signed, ExpiresAt: expiresAt, Account: account}, nil
}

// Validate resolves a bearer value to a principal without mutating state.
func (m *Manager) Validate(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, apperr.Unauthorized("missing token")
	}
	claims, err := auth.ParseToken(m.secret, m.issuer, token)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	now := m.now().UTC()
	hash := crypto.HashToken(token)
	if p, ok := m.cache.get(ctx, hash); ok && p.ExpiresAt.After(now) {
		p.TokenHash = hash
		return p, nil
	}

	row, err := m.store.GetTokenByHash(ctx, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return Principal{}, ErrInvalidToken
	}
	if err != nil {
		return Principal{}, err
	}
	if row.ID != claims.ID || row.AccountID != claims.AccountID || !row.Valid(now) {
		return Principal{}, ErrInvalidToken
	}

	account, err := m.store.GetAccountByID(ctx, row.AccountID)
	if errors.Is(err, repository.ErrNotFound) {
		return Principal{}, ErrInvalidToken
	}
	if err != nil {
		return Principal{}, err
	}
	if account.IsBanned {
		return Principal{}, ErrAccountBanned
	}

	p := Principal{
		AccountID: account.ID,
		Role:      account.Role,
		TokenID:   row.ID,
		TokenHash: hash,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if row.ExpiresAt != nil && row.ExpiresAt.Before(p.ExpiresAt) {
		p.ExpiresAt = *row.ExpiresAt
	}
	m.cache.put(ctx, hash, p, now)
	return p, nil
}

// Revoke invalidates one token. Revoking an already dead token is not an error.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	hash := crypto.HashToken(token)
	n, err := m.store.InvalidateToken(ctx, hash, m.now().UTC())
	if err != nil {
		return err
	}
	m.cache.drop(ctx, hash)
	metrics.TokensRevoked.Add(float64(n))
	return nil
}

// RevokeAll invalidates every token of the account and reports how many were
// still valid.
func (m *Manager) RevokeAll(ctx context.Context, accountID string) (int64, error) {
	return m.RevokeAllIn(ctx, m.store, accountID)
}

func (m *Manager) RevokeAllIn(ctx context.Context, store *repository.Store, accountID string) (int64, error) {
	n, err := store.InvalidateAccountTokens(ctx, accountID, m.now().UTC())
	if err != nil {
		return 0, err
	}
	m.cache.forget(ctx, accountID)
	metrics.TokensRevoked.Add(float64(n))
	return n, nil
}

// Forget drops cached principals of the account, e.g. after a role change.
func (m *Manager) Forget(ctx context.Context, accountID string) {
	m.cache.forget(ctx, accountID)
}

// Cleanup deletes tokens that are invalidated or past expiry.
func (m *Manager) Cleanup(ctx context.Context) (int64, error) {
	n, err := m.store.CleanupTokens(ctx, m.now().UTC())
	if err != nil {
		return 0, err
	}
	metrics.TokensCleaned.Add(float64(n))
	if n > 0 {
		log.Ctx(ctx).Info().Int64("deleted", n).Msg("session tokens cleaned")
	}
	return n, nil
}

func (m *Manager) Stats(ctx context.Context) (model.TokenStats, error) {
	return m.store.TokenStats(ctx, m.now().UTC())
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
