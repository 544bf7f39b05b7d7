package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dandantas/boomerang/internal/database"
	"github.com/dandantas/boomerang/internal/model"
)

// jobListOutput represents the output for a list of jobs
type jobListOutput struct {
	Jobs  []model.JobView `json:"jobs"`
	Total int             `json:"total"`
}

func newJobsCmd(open StoreOpener) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect jobs",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs in a status, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, _ := cmd.Flags().GetString("status")
			status, err := model.ParseJobStatus(raw)
			if err != nil {
				return err
			}

			return withStore(cmd, open, func(ctx context.Context, store database.JobStore) error {
				jobs, err := store.ListByStatus(ctx, status)
				if err != nil {
					return fmt.Errorf("error listing jobs: %w", err)
				}

				output := jobListOutput{Jobs: make([]model.JobView, 0, len(jobs)), Total: len(jobs)}
				for i := range jobs {
					output.Jobs = append(output.Jobs, jobs[i].View())
				}
				return printJSON(cmd.OutOrStdout(), output)
			})
		},
	}
	listCmd.Flags().StringP("status", "s", string(model.StatusProcessing), "Job status (processing, completed, failed)")

	getCmd := &cobra.Command{
		Use:   "get <job-id>",
		Short: "Show a single job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, open, func(ctx context.Context, store database.JobStore) error {
				job, found, err := store.Get(ctx, args[0])
				if err != nil {
					return fmt.Errorf("error fetching job: %w", err)
				}
				if !found {
					return fmt.Errorf("%w: %s", model.ErrNotFound, args[0])
				}
				return printJSON(cmd.OutOrStdout(), job.View())
			})
		},
	}

	jobsCmd.AddCommand(listCmd, getCmd)
	return jobsCmd
}
