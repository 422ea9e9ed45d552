package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/spf13/cobra"
)

func cartCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and change the persisted cart",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(cmd.Context(), g)
				if err != nil {
					return err
				}
				defer a.close()
				printCart(cmd.OutOrStdout(), a.ledger.Snapshot())
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <product-id> [quantity]",
			Short: "Add a product, merging with an existing line",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				quantity := 1
				if len(args) == 2 {
					q, err := strconv.Atoi(args[1])
					if err != nil {
						return fmt.Errorf("invalid quantity %q", args[1])
					}
					quantity = q
				}

				a, err := newApp(cmd.Context(), g)
				if err != nil {
					return err
				}
				defer a.close()

				product, err := a.backend.Product(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				candidate, err := cart.FromProduct(*product, quantity)
				if err != nil {
					return err
				}
				if err := a.ledger.AddItem(cmd.Context(), candidate); err != nil {
					return err
				}
				printCart(cmd.OutOrStdout(), a.ledger.Snapshot())
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <product-id> <quantity>",
			Short: "Set the quantity of a line already in the cart",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				quantity, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid quantity %q", args[1])
				}

				a, err := newApp(cmd.Context(), g)
				if err != nil {
					return err
				}
				defer a.close()

				if err := a.ledger.SetQuantity(cmd.Context(), args[0], quantity); err != nil {
					return err
				}
				printCart(cmd.OutOrStdout(), a.ledger.Snapshot())
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <product-id>",
			Short: "Remove a line from the cart",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(cmd.Context(), g)
				if err != nil {
					return err
				}
				defer a.close()

				if err := a.ledger.RemoveItem(cmd.Context(), args[0]); err != nil {
					return err
				}
				printCart(cmd.OutOrStdout(), a.ledger.Snapshot())
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Empty the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(cmd.Context(), g)
				if err != nil {
					return err
				}
				defer a.close()
				return a.ledger.Clear(cmd.Context())
			},
		},
	)
	return cmd
}

func printCart(w io.Writer, state domain.CartState) {
	if state.IsEmpty() {
		fmt.Fprintln(w, "cart is empty")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tNAME\tQTY\tPRICE\tTOTAL")
	for _, it := range state.Items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			it.ProductID, it.Name, it.Quantity,
			domain.FormatMoney(it.UnitPrice), domain.FormatMoney(it.LineTotal))
	}
	fmt.Fprintf(tw, "\t\t%d\t\t%s\n", state.TotalQuantity, domain.FormatMoney(state.TotalPrice))
	_ = tw.Flush()
}
