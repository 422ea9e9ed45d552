package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/spf13/cobra"
)

func ordersCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Browse the order history",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List orders, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(cmd.Context(), g)
				if err != nil {
					return err
				}
				defer a.close()

				list, err := a.orders.List(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSTATUS\tITEMS\tTOTAL\tCREATED")
				for _, s := range list {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
						s.ID, s.Status, s.ItemCount, domain.FormatMoney(s.TotalPrice), s.CreatedAt.Format(time.DateTime))
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "show <order-id>",
			Short: "Show one order",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(cmd.Context(), g)
				if err != nil {
					return err
				}
				defer a.close()

				o, err := a.orders.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "order %s  %s\n", o.ID, o.Status)
				fmt.Fprintf(w, "  placed    %s\n", o.CreatedAt.Format(time.DateTime))
				if o.DeliveredAt != nil {
					fmt.Fprintf(w, "  delivered %s\n", o.DeliveredAt.Format(time.DateTime))
				}
				fmt.Fprintf(w, "  ship to   %s, %s, %s %s, %s\n",
					o.Shipping.Address, o.Shipping.City, o.Shipping.State, o.Shipping.ZipCode, o.Shipping.Country)
				fmt.Fprintf(w, "  payment   %s (%s)\n", o.Payment.ID, o.Payment.Status)
				printCart(w, domain.CartState{Items: o.Items, TotalQuantity: itemCount(o.Items), TotalPrice: o.Prices.ItemsPrice})
				fmt.Fprintf(w, "  total     %s\n", domain.FormatMoney(o.Prices.TotalPrice))
				return nil
			},
		},
	)
	return cmd
}

func itemCount(items []domain.LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
