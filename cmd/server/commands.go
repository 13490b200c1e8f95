package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"volunteerhub/internal/account"
	"volunteerhub/internal/db"
	"volunteerhub/internal/repository"
	"volunteerhub/internal/seed"
	"volunteerhub/internal/session"
)

func (a *app) newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, _, err := a.openStore(ctx, true)
			if err != nil {
				return err
			}
			defer pool.Close()
			current, err := db.MigrationVersion(ctx, pool)
			if err != nil {
				return err
			}
			log.Info().Int64("version", current).Msg("database migrated")
			return nil
		},
	}
}

func (a *app) newTokensCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Session token maintenance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "cleanup",
		Short: "Delete invalidated and expired session tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, store, err := a.openStore(ctx, false)
			if err != nil {
				return err
			}
			defer pool.Close()
			deleted, err := a.sessions(store).Cleanup(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d tokens\n", deleted)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print session token counts as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, store, err := a.openStore(ctx, false)
			if err != nil {
				return err
			}
			defer pool.Close()
			stats, err := a.sessions(store).Stats(ctx)
			if err != nil {
				return err
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(stats)
		},
	})
	return cmd
}

func (a *app) newSeedCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load faculties and majors from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := seed.Load(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			ctx := cmd.Context()
			pool, store, err := a.openStore(ctx, true)
			if err != nil {
				return err
			}
			defer pool.Close()

			var result seed.Result
			err = store.WithTx(ctx, func(tx *repository.Store) error {
				result, err = seed.Apply(ctx, tx, catalog)
				return err
			})
			if err != nil {
				return err
			}
			log.Info().Int("faculties", result.Faculties).Int("majors", result.Majors).Msg("reference data loaded")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML file listing faculties and their majors")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *app) newAdminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative account operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var email, firstName, lastName string
	bootstrap := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create or promote an ADMIN account; the password is read from VOLUNTEERHUB_ADMIN_PASSWORD",
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv("VOLUNTEERHUB_ADMIN_PASSWORD")
			if password == "" {
				return fmt.Errorf("VOLUNTEERHUB_ADMIN_PASSWORD is not set")
			}
			ctx := cmd.Context()
			pool, store, err := a.openStore(ctx, true)
			if err != nil {
				return err
			}
			defer pool.Close()

			sessions := a.sessions(store)
			admin, err := account.NewManager(store, sessions).Bootstrap(ctx, email, password, firstName, lastName)
			if err != nil {
				return err
			}
			log.Info().Str("account_id", admin.ID).Str("email", admin.Email).Msg("admin account ready")
			return nil
		},
	}
	bootstrap.Flags().StringVar(&email, "email", "", "Admin email address")
	bootstrap.Flags().StringVar(&firstName, "first-name", "Admin", "First name for a new account")
	bootstrap.Flags().StringVar(&lastName, "last-name", "", "Last name for a new account")
	_ = bootstrap.MarkFlagRequired("email")

	cmd.AddCommand(bootstrap)
	return cmd
}

func (a *app) sessions(store *repository.Store) *session.Manager {
	return session.NewManager(store, session.Options{
		Secret: a.cfg.JWTSecret,
		Issuer: a.cfg.JWTIssuer,
		TTL:    a.cfg.TokenTTL,
	})
}
