package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Repair the category index, publish orphaned approvals and purge expired sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			app, err := NewApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.Workflow.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			purged, err := app.Auth.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"links created %d, categories created %d, categories updated %d, questions materialized %d, sessions purged %d\n",
				report.LinksCreated, report.CategoriesCreated, report.CategoriesUpdated, report.QuestionsMaterialized, purged)
			return nil
		},
	}
}
