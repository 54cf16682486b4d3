package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"github.com/truthbyte/backend/internal/models"
)

type DecideOptions struct {
	*RootOptions
	Action   string
	Reviewer string
	Notes    string
}

func NewDecideCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecideOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decide <submission-id>",
		Short: "Approve or reject a pending submission",
		Long: `Approve or reject a pending submission. Approval publishes the question.

Example:
  trivia decide 6f1c... --action approve --reviewer alice
  trivia decide 6f1c... --action reject --reviewer alice --notes "duplicate"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(opts.RootOptions)
			if err != nil {
				return err
			}
			app, err := NewApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Workflow.ApplyDecision(cmd.Context(), args[0], models.Decision{
				Action:     models.DecisionAction(opts.Action),
				ReviewerID: opts.Reviewer,
				Notes:      opts.Notes,
			})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&opts.Action, "action", "", "approve or reject (required)")
	cmd.Flags().StringVar(&opts.Reviewer, "reviewer", "", "reviewer id (required)")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "reviewer notes")
	_ = cmd.MarkFlagRequired("action")
	_ = cmd.MarkFlagRequired("reviewer")
	return cmd
}
