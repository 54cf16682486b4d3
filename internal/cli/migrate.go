package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/truthbyte/backend/internal/database"
)

type MigrateOptions struct {
	*RootOptions
	Down bool
}

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(opts.RootOptions)
			if err != nil {
				return err
			}
			defer log.Sync()

			dir := database.Up
			if opts.Down {
				dir = database.Down
			}
			if err := database.Migrate(cfg.Database, dir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations %s complete (%s)\n", dir, cfg.Database.Driver)
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.Down, "down", false, "roll back every migration")
	return cmd
}
