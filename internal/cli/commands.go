package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/anonto42/freelink/backend/internal/bootstrap"
	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/spf13/cobra"
)

// NewSweepCommand closes every job whose end date has passed.
func NewSweepCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Close jobs whose end date has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd.Context(), func(c *bootstrap.Container) error {
				report, err := c.Sweeper.SweepOnce(cmd.Context(), time.Now())
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), report, func(w io.Writer) {
					fmt.Fprintf(w, "scanned %d jobs, %d expired, %d closed\n", report.Scanned, report.Expired, report.Closed)
				})
			})
		},
	}
}

// NewReconcileCommand repairs relationship mirrors for one user or everyone.
func NewReconcileCommand(opts *RootOptions) *cobra.Command {
	var all, freelancer bool

	cmd := &cobra.Command{
		Use:   "reconcile [userId]",
		Short: "Repair relationship mirrors from job records",
		Long: `Rebuild acceptedFreelancers / linkedEmployers from the jobs that hold an
acceptance. Pass a user id, or --all for every employer and freelancer.

Examples:
  freelinkctl reconcile emp-123
  freelinkctl reconcile fl-456 --freelancer
  freelinkctl reconcile --all --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("pass exactly one of a user id or --all")
			}
			return opts.withContainer(cmd.Context(), func(c *bootstrap.Container) error {
				var reports []models.ReconcileReport
				if all {
					var err error
					if reports, err = c.Projection.ReconcileAll(cmd.Context()); err != nil {
						return err
					}
				} else {
					reconcile := c.Projection.Reconcile
					if freelancer {
						reconcile = c.Projection.ReconcileFreelancer
					}
					report, err := reconcile(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					reports = append(reports, *report)
				}
				return opts.print(cmd.OutOrStdout(), reports, func(w io.Writer) {
					for _, r := range reports {
						fmt.Fprintf(w, "%s: expected %d, repaired %d, removed %d\n", r.UserID, r.Expected, r.Repaired, r.Removed)
					}
				})
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "reconcile every employer and freelancer")
	cmd.Flags().BoolVar(&freelancer, "freelancer", false, "treat the user id as a freelancer")

	return cmd
}

// NewRetryCommand redelivers dead-lettered notifications.
func NewRetryCommand(opts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "retry-deliveries",
		Short: "Redeliver notifications that exhausted their attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd.Context(), func(c *bootstrap.Container) error {
				report, err := c.Notifier.RetryFailed(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), report, func(w io.Writer) {
					fmt.Fprintf(w, "retried %d, delivered %d, %d remaining\n", report.Retried, report.Delivered, report.Remaining)
				})
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 200, "maximum dead letters to retry")

	return cmd
}
