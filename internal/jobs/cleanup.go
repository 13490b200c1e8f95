package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"volunteerhub/internal/config"
)

type TokenCleaner interface {
	Cleanup(ctx context.Context) (int64, error)
}

type BanExpirer interface {
	ExpireBans(ctx context.Context) (int, error)
}

// StartCleanupJob periodically deletes dead session tokens and lifts expired
// bans until ctx is cancelled.
func StartCleanupJob(ctx context.Context, cfg config.Config, tokens TokenCleaner, bans BanExpirer) {
	if !cfg.CleanupEnabled {
		log.Ctx(ctx).Info().Msg("cleanup job disabled")
		return
	}
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	timeout := cfg.CleanupTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, timeout)
				_ = RunCleanup(tickCtx, tokens, bans)
				cancel()
			}
		}
	}()
}

// RunCleanup performs one pass. Both steps run even if the first fails.
func RunCleanup(ctx context.Context, tokens TokenCleaner, bans BanExpirer) error {
	logger := log.Ctx(ctx)

	deleted, tokenErr := tokens.Cleanup(ctx)
	if tokenErr != nil {
		logger.Error().Err(tokenErr).Msg("token cleanup failed")
	}
	expired, banErr := bans.ExpireBans(ctx)
	if banErr != nil {
		logger.Error().Err(banErr).Msg("ban expiry failed")
	}
	if tokenErr == nil && banErr == nil && (deleted > 0 || expired > 0) {
		logger.Info().Int64("tokens_deleted", deleted).Int("bans_expired", expired).Msg("cleanup pass finished")
	}
	return errors.Join(tokenErr, banErr)
}
