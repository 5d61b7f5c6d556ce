package main

import (
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/aspire-solar/billdesk/jobs"
)

// taskFor builds the task a `jobs trigger` invocation names.
func taskFor(name string, args []string) (*asynq.Task, error) {
	switch name {
	case jobs.TaskInvoiceBackfill:
		return jobs.NewInvoiceBackfillTask(0)
	case jobs.TaskInvoiceRender:
		if len(args) != 1 {
			return nil, errors.New("invoice:render needs an invoice id")
		}
		return jobs.NewInvoiceRenderTask(args[0])
	case jobs.TaskStorageDelete:
		if len(args) != 1 {
			return nil, errors.New("storage:delete needs a file name")
		}
		return jobs.NewStorageDeleteTask(args[0])
	}
	return nil, fmt.Errorf("unsupported job %s", name)
}

func newJobsCommand(e *env) *cobra.Command {
	jobsCmd := &cobra.Command{Use: "jobs", Short: "Inspect and trigger background jobs"}

	jobsCmd.AddCommand(&cobra.Command{
		Use:   "trigger <task-type> [arg]",
		Short: "Enqueue a task (invoice:backfill, invoice:render <id>, storage:delete <file>)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := taskFor(args[0], args[1:])
			if err != nil {
				return err
			}
			opts, err := e.redisOpts()
			if err != nil {
				return err
			}
			client := asynq.NewClient(opts)
			defer client.Close()
			info, err := client.EnqueueContext(cmd.Context(), task)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	})

	jobsCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show default queue depth",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := e.redisOpts()
			if err != nil {
				return err
			}
			inspector := asynq.NewInspector(opts)
			defer inspector.Close()
			info, err := inspector.GetQueueInfo(jobs.QueueDefault)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
				info.Queue, info.Pending, info.Active, info.Scheduled, info.Retry, info.Archived)
			return nil
		},
	})
	return jobsCmd
}
