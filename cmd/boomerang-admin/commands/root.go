package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dandantas/boomerang/internal/config"
	"github.com/dandantas/boomerang/internal/database"
)

// flag names
const (
	flagTimeout = "timeout"
)

// StoreOpener opens the job store the commands operate on
type StoreOpener func(ctx context.Context) (database.JobStore, error)

// OpenConfiguredStore opens the store named by the environment configuration
func OpenConfiguredStore(ctx context.Context) (database.JobStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	config.InitLogger(cfg)

	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}
	return database.Open(ctx, cfg)
}

// NewRootCmd builds the admin command tree
func NewRootCmd(open StoreOpener) *cobra.Command {
	root := &cobra.Command{
		Use:   "boomerang-admin",
		Short: "Boomerang admin CLI - inspect and maintain the job store",
		Long: `boomerang-admin works directly against the configured job store
(STORE_DRIVER, MONGO_* or BADGER_* environment variables, optionally from .env).`,
		SilenceUsage: true,
	}
	root.PersistentFlags().Duration(flagTimeout, 30*time.Second, "Timeout for the whole command")

	root.AddCommand(newJobsCmd(open))
	root.AddCommand(newPurgeCmd(open))
	return root
}

// withStore opens the store, runs fn and closes the store again
func withStore(cmd *cobra.Command, open StoreOpener, fn func(ctx context.Context, store database.JobStore) error) error {
	timeout, _ := cmd.Flags().GetDuration(flagTimeout)
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	store, err := open(ctx)
	if err != nil {
		return fmt.Errorf("error opening job store: %w", err)
	}
	defer store.Close(context.Background())

	return fn(ctx, store)
}

func printJSON(w io.Writer, v interface{}) error {
	prettyJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting response: %w", err)
	}
	_, err = fmt.Fprintln(w, string(prettyJSON))
	return err
}
