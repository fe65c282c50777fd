package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/mr1hm/sentinel-sea/internal/config"
	"github.com/mr1hm/sentinel-sea/internal/geo"
	"github.com/mr1hm/sentinel-sea/internal/ingestion"
	"github.com/mr1hm/sentinel-sea/internal/repository"
	"github.com/mr1hm/sentinel-sea/internal/simulation"
)

func seedCommand(cfg *config.Config) *cobra.Command {
	var (
		path  string
		count int
		seed  int64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill a SQLite database with synthetic detections",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = cfg.DB.Path
			}
			if path == "" {
				return fmt.Errorf("no database path: set DB_PATH or --db")
			}
			if count < 1 {
				return fmt.Errorf("count must be at least 1")
			}

			db, err := repository.NewSQLiteDB(path)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			mpas, err := db.ListMPAs(ctx)
			if err != nil {
				return fmt.Errorf("error reading protected areas: %w", err)
			}
			if len(mpas) == 0 {
				for _, mpa := range geo.DefaultMPAs() {
					if err := db.AddMPA(ctx, &mpa); err != nil {
						return fmt.Errorf("error adding %s: %w", mpa.Name, err)
					}
				}
			}

			ds, err := ingestion.Seed(ctx, db, simulation.NewGenerator(seed), count, time.Now().UTC())
			if err != nil {
				return err
			}
			slog.Info("database seeded", "path", path, "detections", len(ds))
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d detections into %s\n", len(ds), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "db", "", "SQLite database path (defaults to DB_PATH)")
	cmd.Flags().IntVar(&count, "count", 25, "number of detections to generate")
	cmd.Flags().Int64Var(&seed, "seed", 0, "generator seed, 0 for random")
	return cmd
}
