package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
	"github.com/Harshitk-cp/mindkernel/internal/service"
)

func newEnqueueCmd(a *app) *cobra.Command {
	var objectType, action, priority, runAt string
	var req service.EnqueueRequest
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue a lifecycle job",
		Long: `Queue a verify, revalidate, decay, archive or reinstate-check job for a
memory, experience or cognition. A repeated idempotency key returns the
existing job.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.ObjectType = domain.ObjectType(objectType)
			req.Action = domain.JobAction(action)
			req.Priority = domain.JobPriority(priority)
			if runAt != "" {
				t, err := domain.ParseTime(runAt)
				if err != nil {
					return fmt.Errorf("--run-at: %w", err)
				}
				req.RunAt = t
			}
			res, err := a.k.Scheduler.Enqueue(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.print(cmd, res)
		},
	}
	cmd.Flags().StringVar(&objectType, "object-type", "", "memory, experience or cognition")
	cmd.Flags().StringVar(&req.ObjectID, "object-id", "", "Target object id")
	cmd.Flags().StringVar(&action, "action", "", "verify, revalidate, decay, archive, reinstate-check")
	cmd.Flags().StringVar(&runAt, "run-at", "", "RFC3339 time (default now)")
	cmd.Flags().StringVar(&priority, "priority", string(domain.PriorityMedium), "low, medium or high")
	cmd.Flags().IntVar(&req.MaxAttempts, "max-attempts", service.DefaultMaxAttempts, "Attempts before dead-lettering")
	cmd.Flags().StringVar(&req.IdempotencyKey, "idempotency-key", "", "Deduplication key")
	cmd.Flags().StringVar(&req.CorrelationID, "correlation-id", "", "Correlation id carried into audit events")
	_ = cmd.MarkFlagRequired("object-type")
	_ = cmd.MarkFlagRequired("object-id")
	_ = cmd.MarkFlagRequired("action")
	return cmd
}

func newPullCmd(a *app) *cobra.Command {
	var workerID, now string
	var limit int
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Claim due jobs for a worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var at time.Time
			if now != "" {
				t, err := domain.ParseTime(now)
				if err != nil {
					return fmt.Errorf("--now: %w", err)
				}
				at = t
			}
			jobs, err := a.k.Scheduler.Pull(cmd.Context(), workerID, at, limit)
			if err != nil {
				return err
			}
			return a.print(cmd, map[string]any{"jobs": jobs, "count": len(jobs)})
		},
	}
	cmd.Flags().StringVar(&workerID, "worker-id", "", "Worker claiming the jobs")
	cmd.Flags().IntVar(&limit, "limit", service.DefaultPullLimit, "Maximum jobs to claim")
	cmd.Flags().StringVar(&now, "now", "", "RFC3339 time to evaluate due jobs at (default now)")
	_ = cmd.MarkFlagRequired("worker-id")
	return cmd
}

func newAckCmd(a *app) *cobra.Command {
	var jobID string
	cmd := &cobra.Command{
		Use:   "ack",
		Short: "Mark a running job succeeded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := a.k.Scheduler.Ack(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			return a.print(cmd, job)
		},
	}
	cmd.Flags().StringVar(&jobID, "job-id", "", "Job id")
	_ = cmd.MarkFlagRequired("job-id")
	return cmd
}

func newFailCmd(a *app) *cobra.Command {
	var jobID, msg string
	var delaySec int
	cmd := &cobra.Command{
		Use:   "fail",
		Short: "Record a failed attempt of a running job",
		Long: `Record a failed attempt. The job is re-queued after --retry-delay seconds,
or dead-lettered once it has used all of its attempts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			delay, err := service.RetryDelaySeconds(delaySec)
			if err != nil {
				return err
			}
			job, err := a.k.Scheduler.Fail(cmd.Context(), jobID, msg, delay)
			if err != nil {
				return err
			}
			return a.print(cmd, job)
		},
	}
	cmd.Flags().StringVar(&jobID, "job-id", "", "Job id")
	cmd.Flags().StringVar(&msg, "error", "", "Failure message")
	cmd.Flags().IntVar(&delaySec, "retry-delay", int(service.DefaultRetryDelay/time.Second), "Seconds before the retry")
	_ = cmd.MarkFlagRequired("job-id")
	_ = cmd.MarkFlagRequired("error")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show job counts per status and the audit event count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.k.Scheduler.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd, stats)
		},
	}
}

func newWorkCmd(a *app) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "work",
		Short: "Run the job worker",
		Long: `Pull due jobs, apply their actions and ack or fail them. With --once a
single batch is processed; otherwise the worker polls until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if once {
				res, err := a.k.Worker.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				return a.print(cmd, res)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			a.k.Worker.Start()
			<-ctx.Done()
			a.k.Worker.Stop()
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Process one batch and exit")
	return cmd
}

func newSweepCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Enqueue revalidation for cognitions past their review date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.k.Sweeper.RunSweep(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd, res)
		},
	}
}
