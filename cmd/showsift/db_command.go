package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/showsift/showsift/internal/config"
	"github.com/showsift/showsift/internal/database"
	"github.com/showsift/showsift/internal/logger"
	"github.com/showsift/showsift/internal/metadata/tmdb"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect and maintain the catalog database",
	}

	dbCmd.AddCommand(newDBStatsCommand(ctx))
	dbCmd.AddCommand(newDBVerifyCommand(ctx))
	dbCmd.AddCommand(newDBCacheCommand(ctx))

	return dbCmd
}

func newDBStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, log *logger.Logger, store *database.Store) error {
				stats, err := store.GetStats(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderCounts("Catalog", "Count", [][2]string{
					{"Series", strconv.FormatInt(stats.Series, 10)},
					{"Seasons", strconv.FormatInt(stats.Seasons, 10)},
					{"Torrents", strconv.FormatInt(stats.Torrents, 10)},
					{"Assigned to seasons", strconv.FormatInt(stats.TorrentsBySeason, 10)},
					{"Unassigned", strconv.FormatInt(stats.Unassigned, 10)},
					{"Low confidence", strconv.FormatInt(stats.LowConfidence, 10)},
					{"Total size", humanize.IBytes(uint64(stats.TotalSizeBytes))},
				}))

				if len(stats.SeriesByStatus) > 0 {
					statuses := make([]string, 0, len(stats.SeriesByStatus))
					for status := range stats.SeriesByStatus {
						statuses = append(statuses, status)
					}
					sort.Strings(statuses)

					rows := make([][2]string, 0, len(statuses))
					for _, status := range statuses {
						rows = append(rows, [2]string{status, strconv.FormatInt(stats.SeriesByStatus[status], 10)})
					}
					fmt.Fprintln(out, renderCounts("Series Status", "Count", rows))
				}
				return nil
			})
		},
	}
}

func newDBVerifyCommand(ctx *commandContext) *cobra.Command {
	var repair bool

	command := &cobra.Command{
		Use:   "verify",
		Short: "Check catalog consistency",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, log *logger.Logger, store *database.Store) error {
				report, err := store.Verify(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if report.Clean() {
					fmt.Fprintln(out, "No consistency problems found")
					return nil
				}

				fmt.Fprintln(out, renderCounts("Check", "Failures", [][2]string{
					{"Seasons with stale counts", strconv.FormatInt(report.SeasonsWithStaleCounts, 10)},
					{"Torrents linked across series", strconv.FormatInt(report.TorrentsBadSeasonLink, 10)},
					{"Series without torrents", strconv.FormatInt(report.SeriesEmpty, 10)},
				}))

				if repair {
					repaired, err := store.RepairSeasonCounts(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Recomputed aggregates for %d seasons\n", repaired)
				} else if report.SeasonsWithStaleCounts > 0 {
					fmt.Fprintln(out, "Run with --repair to recompute season aggregates")
				}
				return nil
			})
		},
	}

	command.Flags().BoolVar(&repair, "repair", false, "recompute stale season aggregates")

	return command
}

func newDBCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the TMDB response cache",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show response cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, warn, err := responseCache(ctx)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil || cache == nil {
				return err
			}

			stats, err := cache.Stats()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Entries: %d (%d expired)\n", stats.Entries, stats.Expired)
			fmt.Fprintf(out, "Size:    %s\n", humanize.IBytes(uint64(stats.SizeBytes)))
			if !stats.Oldest.IsZero() {
				const stampLayout = "2006-01-02 15:04"
				fmt.Fprintf(out, "Oldest:  %s\n", stats.Oldest.Local().Format(stampLayout))
				fmt.Fprintf(out, "Newest:  %s\n", stats.Newest.Local().Format(stampLayout))
			}
			return nil
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired response cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, warn, err := responseCache(ctx)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil || cache == nil {
				return err
			}

			removed, err := cache.CleanupExpired()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entries\n", removed)
			return nil
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove all response cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, warn, err := responseCache(ctx)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil || cache == nil {
				return err
			}

			removed, err := cache.Clear()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", removed)
			return nil
		},
	})

	return cacheCmd
}

// responseCache opens the TMDB response cache from configuration. The
// warning string is set when caching is disabled, which is not an
// error.
func responseCache(ctx *commandContext) (*tmdb.Cache, string, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	if cfg.TMDB.CacheDir == "" {
		return nil, "Response cache is disabled (set tmdb.cache_dir)", nil
	}

	log := logger.New(logger.Config{Level: "info", Format: "console"})
	cache, err := tmdb.NewCache(cfg.TMDB.CacheDir, cfg.TMDB.CacheTTL, log.Logger)
	if err != nil {
		return nil, "", fmt.Errorf("open response cache: %w", err)
	}
	return cache, "", nil
}
