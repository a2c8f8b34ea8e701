package main

import (
	"fmt"
	"os"

	"github.com/inkwell-dev/website/internal/store"
	"github.com/spf13/cobra"
)

func ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Run the ingestion pipeline once over the articles directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			db, err := connectPostgres(ctx, cfg.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()

			p, err := buildPipeline(ctx, cfg, store.NewArticleStore(db), nil)
			if err != nil {
				return err
			}
			defer p.Close()

			report, err := p.driver.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%d files: %d published, %d skipped, %d rejected, %d failed (%s)\n",
				report.Total(), report.Published, report.Skipped, report.Rejected, report.Failed, report.Duration)
			for _, r := range report.Results {
				if r.Error != "" {
					fmt.Fprintf(os.Stdout, "  %s: %s: %s\n", r.Path, r.Outcome, r.Error)
				}
			}
			return nil
		},
	}
}
