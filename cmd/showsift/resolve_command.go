package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/showsift/showsift/internal/config"
	"github.com/showsift/showsift/internal/database"
	"github.com/showsift/showsift/internal/logger"
	"github.com/showsift/showsift/internal/resolver"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var (
		includeFailed bool
		seriesID      int64
		force         bool
	)

	command := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve series identities against metadata providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if force && seriesID == 0 {
				return fmt.Errorf("--force requires --series")
			}
			return ctx.withStore(func(cfg *config.Config, log *logger.Logger, store *database.Store) error {
				svcs := buildServices(cfg, store, nil, nil, log)

				if seriesID != 0 {
					outcome, err := svcs.resolver.ResolveOne(cmd.Context(), seriesID, force)
					if err != nil {
						return err
					}
					printOutcome(cmd.OutOrStdout(), outcome)
					return nil
				}

				report, err := svcs.resolver.ResolveBacklog(cmd.Context(), includeFailed)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Attempted: %d\n", report.Attempted)
				fmt.Fprintf(out, "Resolved:  %d (%d via search, %d via AI)\n",
					report.Resolved(), report.SearchMatched, report.AIMatched)
				fmt.Fprintf(out, "Failed:    %d, skipped: %d\n", report.Failed, report.Skipped)
				return nil
			})
		},
	}

	command.Flags().BoolVar(&includeFailed, "include-failed", false, "retry series whose previous attempts exhausted every tier")
	command.Flags().Int64Var(&seriesID, "series", 0, "resolve a single series by id")
	command.Flags().BoolVar(&force, "force", false, "re-run the chain even if the series already has an identity (requires --series)")

	return command
}

func printOutcome(out io.Writer, o *resolver.Outcome) {
	fmt.Fprintf(out, "Series %d %q: %s", o.SeriesID, o.Title, o.Status)
	if o.Tier != "" {
		fmt.Fprintf(out, " (tier %s)", o.Tier)
	}
	if o.TMDBID != 0 {
		fmt.Fprintf(out, " tmdb=%d", o.TMDBID)
	}
	if o.IMDBID != "" {
		fmt.Fprintf(out, " imdb=%s", o.IMDBID)
	}
	fmt.Fprintln(out)
}
