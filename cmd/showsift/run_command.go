package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/showsift/showsift/internal/config"
	"github.com/showsift/showsift/internal/database"
	"github.com/showsift/showsift/internal/logger"
	"github.com/showsift/showsift/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		feedPath    string
		skipResolve bool
		retryFailed bool
	)

	command := &cobra.Command{
		Use:   "run",
		Short: "Ingest the scraped feed and update the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, log *logger.Logger, store *database.Store) error {
				if feedPath != "" {
					cfg.Feed.Path = feedPath
				}

				svcs := buildServices(cfg, store, nil, nil, log)

				report, err := svcs.pipeline.Run(cmd.Context(), pipeline.RunOptions{
					TriggeredBy: "manual",
					SkipResolve: skipResolve,
					RetryFailed: retryFailed,
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run %s completed in %s\n", report.RunID, report.Duration.Round(time.Millisecond))
				fmt.Fprintf(out, "  Topics:   %d\n", report.Topics)
				fmt.Fprintf(out, "  Parsed:   %d (%d low confidence, %d repaired)\n",
					report.Parsed, report.LowConfidence, report.Repaired)
				fmt.Fprintf(out, "  Selected: %d of %d grouped, %d discarded\n",
					report.Selected, report.Grouped, report.Discarded)
				fmt.Fprintf(out, "  Catalog:  %d series, %d seasons, %d torrents upserted\n",
					report.SeriesUpserted, report.SeasonsUpserted, report.TorrentsUpserted)
				if !skipResolve {
					fmt.Fprintf(out, "  Resolved: %d (%d failed), %d torrents linked\n",
						report.Resolved, report.Failed, report.TorrentsLinked)
				}
				return nil
			})
		},
	}

	command.Flags().StringVar(&feedPath, "feed", "", "feed file or directory (overrides feed.path)")
	command.Flags().BoolVar(&skipResolve, "skip-resolve", false, "stop after persistence, leave new series unresolved")
	command.Flags().BoolVar(&retryFailed, "retry-failed", false, "let the resolve stage revisit failed series")

	return command
}
