package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mr1hm/sentinel-sea/internal/config"
	"github.com/mr1hm/sentinel-sea/internal/models"
	"github.com/mr1hm/sentinel-sea/internal/postgrest"
	"github.com/mr1hm/sentinel-sea/internal/report"
	"github.com/mr1hm/sentinel-sea/internal/repository"
)

func reportCommand(cfg *config.Config) *cobra.Command {
	var (
		kind, title string
		from, to    string
		outDir      string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a PDF report from the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := models.ParseReportType(kind)
			if !ok {
				return fmt.Errorf("%w: %s", report.ErrInvalidType, kind)
			}
			start, err := parseDay(from)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			end, err := parseDay(to)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			gen := report.NewGenerator(store, nil)
			res, err := gen.Generate(cmd.Context(), report.Request{
				Type:        t,
				Title:       title,
				From:        start,
				To:          end,
				GeneratedBy: cfg.Analyst.ID,
			})
			if err != nil {
				return err
			}

			out := filepath.Join(outDir, res.Filename)
			if err := os.WriteFile(out, res.PDF, 0o644); err != nil {
				return fmt.Errorf("error writing report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d detections, %d high threat\n", out, res.Summary.Total, res.Summary.HighThreat)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "type", string(models.ReportDaily), "report type (daily, weekly, monthly, incident)")
	cmd.Flags().StringVar(&title, "title", "", "report title")
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD (defaults to today)")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD (defaults to today)")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	return cmd
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	return time.Parse(report.DateLayout, s)
}

// openStore opens the persistent store for the configured mode. Mock data
// only lives inside a running server.
func openStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.Mode() {
	case config.ModeHosted:
		return postgrest.New(cfg.Backend.URL, cfg.Backend.Key, cfg.Backend.Timeout, nil), nil
	case config.ModeSQLite:
		return repository.NewSQLiteDB(cfg.DB.Path)
	default:
		return nil, fmt.Errorf("no store configured: set DB_PATH or the backend credentials")
	}
}
