package repository

import (
	"context"
	"time"

	"volunteerhub/internal/model"
)

const tokenColumns = `id, account_id, token_hash, issued_at, expires_at, invalidated, invalidated_at, user_agent, ip_address`

func (s *Store) InsertToken(ctx context.Context, token model.SessionToken) error {
	_, err := s.exec(ctx, `
		INSERT INTO auth_tokens (id, account_id, token_hash, issued_at, expires_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		token.ID,
		token.AccountID,
		token.TokenHash,
		token.IssuedAt,
		token.ExpiresAt,
		token.UserAgent,
		token.IPAddress,
	)
	return err
}

func (s *Store) GetTokenByHash(ctx context.Context, hash string) (model.SessionToken, error) {
	var token model.SessionToken
	err := s.get(ctx, &token, `SELECT `+tokenColumns+` FROM auth_tokens WHERE token_hash = $1`, hash)
	return token, err
}

// InvalidateToken revokes a single token; the expiry is pulled back to now.
func (s *Store) InvalidateToken(ctx context.Context, hash string, now time.Time) (int64, error) {
	return s.exec(ctx, `
		UPDATE auth_tokens
		SET invalidated = true,
		    invalidated_at = $2,
		    expires_at = CASE WHEN expires_at IS NULL OR expires_at > $2 THEN $2 ELSE expires_at END
		WHERE token_hash = $1 AND NOT invalidated
	`, hash, now)
}

// InvalidateAccountTokens revokes every token of the account that is not yet
// invalidated and returns how many were still valid at now.
func (s *Store) InvalidateAccountTokens(ctx context.Context, accountID string, now time.Time) (int64, error) {
	var valid int64
	err := s.get(ctx, &valid, `
		WITH revoked AS (
			UPDATE auth_tokens
			SET invalidated = true,
			    invalidated_at = $2,
			    expires_at = CASE WHEN expires_at IS NULL OR expires_at > $2 THEN $2 ELSE expires_at END
			WHERE account_id = $1 AND NOT invalidated
			RETURNING (expires_at = $2) AS was_valid
		)
		SELECT count(*) FILTER (WHERE was_valid) FROM revoked
	`, accountID, now)
	return valid, err
}

func (s *Store) ListAccountTokens(ctx context.Context, accountID string) ([]model.SessionToken, error) {
	var tokens []model.SessionToken
	err := s.selectAll(ctx, &tokens, `
		SELECT `+tokenColumns+`
		FROM auth_tokens
		WHERE account_id = $1
		ORDER BY issued_at DESC
	`, accountID)
	return tokens, err
}

// CleanupTokens deletes tokens that can never validate again.
func (s *Store) CleanupTokens(ctx context.Context, now time.Time) (int64, error) {
	return s.exec(ctx, `
		DELETE FROM auth_tokens
		WHERE invalidated OR (expires_at IS NOT NULL AND expires_at <= $1)
	`, now)
}

func (s *Store) TokenStats(ctx context.Context, now time.Time) (model.TokenStats, error) {
	var stats model.TokenStats
	err := s.get(ctx, &stats, `
		SELECT
			count(*) AS total,
			count(*) FILTER (WHERE NOT invalidated AND (expires_at IS NULL OR expires_at > $1)) AS active,
			count(*) FILTER (WHERE NOT invalidated AND expires_at <= $1) AS expired,
			count(*) FILTER (WHERE invalidated) AS invalid,
			count(DISTINCT account_id) FILTER (WHERE NOT invalidated AND (expires_at IS NULL OR expires_at > $1)) AS active_accounts
		FROM auth_tokens
	`, now)
	return stats, err
}
