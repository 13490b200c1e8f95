package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"volunteerhub/internal/config"
	"volunteerhub/internal/db"
	"volunteerhub/internal/repository"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const serviceName = "volunteerhub"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}

type app struct {
	cfg config.Config
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "University volunteer activity service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			a.cfg = cfg
			setupLogging(cfg)
			return nil
		},
	}

	cmd.AddCommand(a.newServeCommand())
	cmd.AddCommand(a.newMigrateCommand())
	cmd.AddCommand(a.newTokensCommand())
	cmd.AddCommand(a.newSeedCommand())
	cmd.AddCommand(a.newAdminCommand())
	return cmd
}

func setupLogging(cfg config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if strings.EqualFold(cfg.LogFormat, "console") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", serviceName).Logger()
	}
	zerolog.DefaultContextLogger = &log.Logger
}

// openStore connects to the database and, when migrate is set, applies pending
// migrations. The caller closes the pool.
func (a *app) openStore(ctx context.Context, migrate bool) (*pgxpool.Pool, *repository.Store, error) {
	pool, err := db.NewPool(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if migrate {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	return pool, repository.NewStore(pool, a.cfg.QueryTimeout), nil
}
