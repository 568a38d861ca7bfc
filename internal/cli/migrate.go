package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayush/guestbook/backend/internal/config"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the relational schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.ConfigFile)
			if err != nil {
				return err
			}
			db, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("%s connect: %w", cfg.DBDriver, err)
			}
			defer db.Close()

			if err := db.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("%s migrate: %w", cfg.DBDriver, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema applied (%s)\n", cfg.DBDriver)
			return nil
		},
	}
}
