package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/showsift/showsift/internal/config"
	"github.com/showsift/showsift/internal/database"
	"github.com/showsift/showsift/internal/logger"
)

func newSeasonsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seasons",
		Short: "Re-derive seasons for torrents with uncertain parses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, log *logger.Logger, store *database.Store) error {
				svcs := buildServices(cfg, store, nil, nil, log)

				linked, err := svcs.resolver.MatchAllSeasons(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Linked %d torrents to seasons\n", linked)
				return nil
			})
		},
	}
}
