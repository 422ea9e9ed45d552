package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fjod/go_storefront/internal/reconcile"
	"github.com/spf13/cobra"
)

var errReconciliationDisabled = errors.New("reconciliation is disabled in the configuration")

func reconcileCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Work with payments that were captured without an order",
	}

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded incidents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.close()
			if a.incidents == nil {
				return errReconciliationDisabled
			}

			incidents, err := a.incidents.List(cmd.Context(), all)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tATTEMPT\tPAYMENT\tAMOUNT\tMOCKED\tCREATED\tPUBLISHED")
			for _, inc := range incidents {
				published := "-"
				if inc.PublishedAt != nil {
					published = inc.PublishedAt.Format(time.DateTime)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%t\t%s\t%s\n",
					inc.ID, inc.AttemptID, inc.PaymentID, inc.Amount.StringFixed(2), inc.Currency,
					inc.Mocked, inc.CreatedAt.Format(time.DateTime), published)
			}
			return tw.Flush()
		},
	}
	list.Flags().BoolVar(&all, "all", false, "Include incidents already published")

	publish := &cobra.Command{
		Use:   "publish",
		Short: "Forward unpublished incidents to the configured sink once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.close()
			if a.incidents == nil {
				return errReconciliationDisabled
			}

			sink, err := a.newSink(cmd.Context())
			if err != nil {
				return err
			}
			if sink == nil {
				return errors.New("no reconciliation sink configured")
			}

			poller := reconcile.NewPoller(a.incidents, sink, a.cfg.Reconciliation.PollInterval,
				a.logger.With("component", "reconcile"), a.metrics)
			n, err := poller.PublishOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d incident(s) to %s\n", n, sink.Name())
			return nil
		},
	}

	cmd.AddCommand(list, publish)
	return cmd
}
