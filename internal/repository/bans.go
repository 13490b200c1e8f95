package repository

import (
	"context"
	"time"

	"volunteerhub/internal/model"
)

const banSelect = `
	SELECT b.id, b.account_id, a.email, b.reason, b.banned_by, b.banned_at, b.expires_at, b.is_active, a.ban_count
	FROM user_bans b
	JOIN accounts a ON a.id = b.account_id`

func (s *Store) InsertBan(ctx context.Context, accountID, reason, bannedBy string, expiresAt *time.Time, now time.Time) (model.Ban, error) {
	var id int64
	err := s.get(ctx, &id, `
		INSERT INTO user_bans (account_id, reason, banned_by, banned_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, accountID, reason, bannedBy, now, expiresAt)
	if err != nil {
		return model.Ban{}, err
	}
	return s.GetBan(ctx, id)
}

func (s *Store) GetBan(ctx context.Context, id int64) (model.Ban, error) {
	var ban model.Ban
	err := s.get(ctx, &ban, banSelect+` WHERE b.id = $1`, id)
	return ban, err
}

// LockLatestActiveBan returns the newest active ban for the email, locked.
func (s *Store) LockLatestActiveBan(ctx context.Context, email string) (model.Ban, error) {
	var ban model.Ban
	err := s.get(ctx, &ban, banSelect+`
		WHERE a.email = lower($1) AND b.is_active
		ORDER BY b.banned_at DESC, b.id DESC
		LIMIT 1
		FOR UPDATE OF b
	`, email)
	return ban, err
}

func (s *Store) DeactivateBan(ctx context.Context, id int64) error {
	n, err := s.exec(ctx, `UPDATE user_bans SET is_active = false WHERE id = $1 AND is_active`, id)
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

type BanFilter struct {
	ActiveOnly bool
	AccountID  string
	Limit      int
	Offset     int
}

func (s *Store) ListBans(ctx context.Context, filter BanFilter) ([]model.Ban, int64, error) {
	var b builder
	if filter.ActiveOnly {
		b.where("b.is_active")
	}
	if filter.AccountID != "" {
		b.where("b.account_id = " + b.arg(filter.AccountID))
	}
	where := b.whereClause()

	var total int64
	if err := s.get(ctx, &total, `SELECT count(*) FROM user_bans b`+where, b.args...); err != nil {
		return nil, 0, err
	}
	limit := b.arg(filter.Limit)
	offset := b.arg(filter.Offset)
	var bans []model.Ban
	err := s.selectAll(ctx, &bans, banSelect+where+` ORDER BY b.banned_at DESC, b.id DESC LIMIT `+limit+` OFFSET `+offset, b.args...)
	return bans, total, err
}

// ExpireBans deactivates bans past their expiry and returns the affected accounts.
func (s *Store) ExpireBans(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := s.selectAll(ctx, &ids, `
		WITH expired AS (
			UPDATE user_bans SET is_active = false
			WHERE is_active AND expires_at IS NOT NULL AND expires_at <= $1
			RETURNING account_id
		)
		SELECT DISTINCT account_id FROM expired
	`, now)
	return ids, err
}
