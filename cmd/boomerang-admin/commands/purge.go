package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dandantas/boomerang/internal/database"
)

func newPurgeCmd(open StoreOpener) *cobra.Command {
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete jobs created more than N days ago, whatever their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			days, _ := cmd.Flags().GetInt("older-than-days")
			if days < 0 {
				return fmt.Errorf("--older-than-days must not be negative")
			}

			return withStore(cmd, open, func(ctx context.Context, store database.JobStore) error {
				removed, err := store.PurgeOlderThan(ctx, days)
				if err != nil {
					return fmt.Errorf("error purging jobs: %w", err)
				}
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"olderThanDays": days,
					"removed":       removed,
				})
			})
		},
	}
	purgeCmd.Flags().IntP("older-than-days", "d", 7, "Age threshold in days")
	return purgeCmd
}
