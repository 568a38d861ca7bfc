package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayush/guestbook/backend/internal/config"
	"github.com/ayush/guestbook/backend/internal/server"
	"github.com/ayush/guestbook/backend/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
}

// NewRootCommand creates the guestbook command. Without a subcommand it
// serves.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "guestbook",
		Short:         "Profile pages with posts and guestbooks",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "YAML config file (default $CONFIG_FILE)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// openStore opens the relational store selected by DB_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (server.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		db, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "postgres":
		pool, err := store.NewPostgresPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return store.NewPostgresStore(pool), nil
	}
	return nil, fmt.Errorf("unknown db driver %q", cfg.DBDriver)
}
