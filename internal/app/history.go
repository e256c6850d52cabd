package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"geniereport/internal/domain"
	"geniereport/internal/report"
	"geniereport/internal/storage/sqlite"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var kind string
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show archived report runs",
		Long: `Reads back the runs archived in db_path, newest first.

Examples:
  geniereport history
  geniereport history --kind payment --limit 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := root.env(cmd)
			if err != nil {
				return err
			}
			if env.cfg.DBPath == "" {
				return domain.NewConfigurationError("db_path", "is required to read the archive (via config.yaml or DB_PATH)")
			}
			switch kind {
			case "", "toil", "stats", "payment":
			default:
				return fmt.Errorf("--kind must be toil, stats or payment, got '%s'", kind)
			}

			db, err := sqlite.InitDB(env.cfg.DBPath)
			if err != nil {
				return fmt.Errorf("opening archive %s: %w", env.cfg.DBPath, err)
			}
			defer db.Close()

			runs, err := sqlite.ListRuns(db, kind, limit)
			if err != nil {
				return fmt.Errorf("listing archived runs: %w", err)
			}
			for i := range runs {
				if runs[i].Lines, err = sqlite.GetRunLines(db, runs[i].ID); err != nil {
					return fmt.Errorf("loading lines of run %s: %w", runs[i].ID, err)
				}
			}
			return report.WriteHistory(env.stdout, env.format, runs)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only runs of this report (toil, stats, payment)")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")
	return cmd
}
