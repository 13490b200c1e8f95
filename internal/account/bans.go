package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"volunteerhub/internal/apperr"
	"volunteerhub/internal/metrics"
	"volunteerhub/internal/model"
	"volunteerhub/internal/repository"
)

type BanRequest struct {
	AccountID string
	Reason    string
	ExpiresAt *time.Time
}

// Ban records an active ban, flags the account and revokes its tokens. Admin
// accounts cannot be banned.
func (m *Manager) Ban(ctx context.Context, actor model.Actor, req BanRequest) (model.Ban, error) {
	if !actor.IsAdmin() {
		return model.Ban{}, apperr.Denied("only admins may ban users")
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.AccountID == "" || req.Reason == "" {
		return model.Ban{}, apperr.Invalid("user_id and reason are required")
	}
	now := m.now().UTC()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return model.Ban{}, apperr.Invalid("expires_at must be in the future")
	}

	var ban model.Ban
	err := m.store.WithTx(ctx, func(tx *repository.Store) error {
		target, err := tx.LockAccount(ctx, req.AccountID)
		if errors.Is(err, repository.ErrNotFound) {
			return errUserNotFound
		}
		if err != nil {
			return err
		}
		if target.Role == model.RoleAdmin {
			return apperr.Conflicting("admin accounts cannot be banned")
		}
		if err := tx.MarkBanned(ctx, target.ID); err != nil {
			return err
		}
		ban, err = tx.InsertBan(ctx, target.ID, req.Reason, actor.ID, req.ExpiresAt, now)
		if err != nil {
			return err
		}
		_, err = m.sessions.RevokeAllIn(ctx, tx, target.ID)
		return err
	})
	if err != nil {
		return model.Ban{}, err
	}
	log.Ctx(ctx).Info().Str("account_id", ban.AccountID).Int64("ban_id", ban.ID).Msg("account banned")
	return ban, nil
}

type UnbanResult struct {
	AccountID string `json:"user_id"`
	Email     string `json:"email"`
	BanID     int64  `json:"ban_id"`
	BanCount  int    `json:"ban_count"`
	IsBanned  bool   `json:"is_banned"`
}

// Unban deactivates the newest active ban of the account with that email and
// recomputes the account's ban flag from the bans that remain.
func (m *Manager) Unban(ctx context.Context, actor model.Actor, email string) (UnbanResult, error) {
	if !actor.IsAdmin() {
		return UnbanResult{}, apperr.Denied("only admins may lift bans")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return UnbanResult{}, apperr.Invalid("email is required")
	}
	var result UnbanResult
	err := m.store.WithTx(ctx, func(tx *repository.Store) error {
		target, err := tx.GetAccountByEmail(ctx, email)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.Missing("no user with this email")
		}
		if err != nil {
			return err
		}
		if _, err := tx.LockAccount(ctx, target.ID); err != nil {
			return err
		}
		ban, err := tx.LockLatestActiveBan(ctx, email)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.Missing("no active ban for this user")
		}
		if err != nil {
			return err
		}
		if err := tx.DeactivateBan(ctx, ban.ID); err != nil {
			return err
		}
		if _, err := tx.RecomputeBanned(ctx, []string{target.ID}); err != nil {
			return err
		}
		updated, err := tx.GetAccountByID(ctx, target.ID)
		if err != nil {
			return err
		}
		result = UnbanResult{
			AccountID: updated.ID,
			Email:     updated.Email,
			BanID:     ban.ID,
			BanCount:  updated.BanCount,
			IsBanned:  updated.IsBanned,
		}
		return nil
	})
	if err != nil {
		return UnbanResult{}, err
	}
	log.Ctx(ctx).Info().Str("account_id", result.AccountID).Bool("is_banned", result.IsBanned).Msg("ban lifted")
	return result, nil
}

type BanQuery struct {
	ActiveOnly bool
	AccountID  string
	Page       int
	Limit      int
}

func (m *Manager) ListBans(ctx context.Context, actor model.Actor, q BanQuery) ([]model.Ban, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, apperr.Denied("only admins may list bans")
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 200 {
		q.Limit = 50
	}
	return m.store.ListBans(ctx, repository.BanFilter{
		ActiveOnly: q.ActiveOnly,
		AccountID:  q.AccountID,
		Limit:      q.Limit,
		Offset:     (q.Page - 1) * q.Limit,
	})
}

// ExpireBans deactivates bans whose expiry has passed and clears the ban flag
// of accounts left without an active ban.
func (m *Manager) ExpireBans(ctx context.Context) (int, error) {
	var expired []string
	err := m.store.WithTx(ctx, func(tx *repository.Store) error {
		var err error
		expired, err = tx.ExpireBans(ctx, m.now().UTC())
		if err != nil {
			return err
		}
		_, err = tx.RecomputeBanned(ctx, expired)
		return err
	})
	if err != nil {
		return 0, err
	}
	metrics.BansExpired.Add(float64(len(expired)))
	return len(expired), nil
}
