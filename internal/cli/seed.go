package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/truthbyte/backend/internal/questions"
)

type SeedOptions struct {
	*RootOptions
	File   string
	Format string
}

func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import seed questions from a JSONL or YAML file",
		Long: `Import seed questions. Records without an id get one derived from their
text, so importing the same file twice publishes nothing new.

Example:
  trivia seed --file questions.jsonl
  trivia seed --file questions.yaml --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := opts.Format
			if format == "" {
				format = formatFromPath(opts.File)
			}

			f, err := os.Open(opts.File)
			if err != nil {
				return err
			}
			defer f.Close()
			items, err := questions.ParseSeed(f, format)
			if err != nil {
				return err
			}

			cfg, log, err := loadConfig(opts.RootOptions)
			if err != nil {
				return err
			}
			app, err := NewApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.Questions.Import(cmd.Context(), items)
			if err != nil {
				return err
			}
			if _, err := app.Questions.Reconcile(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d existing, %d invalid\n",
				report.Imported, report.Skipped, report.Invalid)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.File, "file", "", "seed file (required)")
	cmd.Flags().StringVar(&opts.Format, "format", "", "jsonl or yaml (default: from extension)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "jsonl"
	}
}
