// Package cli implements the storefront command line.
package cli

import (
	"fmt"
	"os"

	"storefront/internal/config"
	"storefront/internal/database"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewRootCommand builds the storefront command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront backend: catalog, carts, checkout and payments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newSeedCommand())
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, sets up logging and opens the database.
func bootstrap() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	config.SetupLogger(cfg.LogLevel, !cfg.IsProduction())

	gormLevel := logger.Warn
	if cfg.LogLevel == "debug" {
		gormLevel = logger.Info
	}
	db, err := database.Open(database.Options{
		Driver:       cfg.DBDriver,
		DSN:          cfg.DBDSN,
		MaxOpenConns: cfg.DBMaxOpenConns,
		LogLevel:     gormLevel,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.Migrate(db); err != nil {
				return err
			}
			log.Info().Msg("database migrated")
			return nil
		},
	}
}

func newSeedCommand() *cobra.Command {
	var adminEmail, adminPassword string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo categories, products and an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.Migrate(db); err != nil {
				return err
			}
			if err := database.Seed(db, adminEmail, adminPassword); err != nil {
				return err
			}
			log.Info().Str("admin", adminEmail).Msg("database seeded")
			return nil
		},
	}
	cmd.Flags().StringVar(&adminEmail, "admin-email", "admin@storefront.local", "email of the seeded admin account")
	cmd.Flags().StringVar(&adminPassword, "admin-password", os.Getenv("SEED_ADMIN_PASSWORD"), "password of the seeded admin account (skipped when empty)")
	return cmd
}
