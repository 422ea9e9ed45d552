package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/spf13/cobra"
)

func checkoutCmd(g *globalFlags) *cobra.Command {
	var (
		shipping  domain.ShippingInfo
		method    string
		cardToken string
		name      string
	)

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Pay for the cart and place the order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pm, err := domain.ParsePaymentMethod(method)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.close()

			receipt, err := a.checkout.PlaceOrder(cmd.Context(), checkout.Request{
				Cart:     a.ledger.Snapshot(),
				Shipping: shipping,
				Payment: domain.PaymentSelection{
					Method:    pm,
					CardToken: cardToken,
				},
				Customer: name,
			})
			if err != nil {
				return describeCheckoutError(err)
			}
			printReceipt(cmd.OutOrStdout(), receipt)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&shipping.Address, "address", "", "Street address")
	f.StringVar(&shipping.City, "city", "", "City")
	f.StringVar(&shipping.State, "state", "", "State or region")
	f.StringVar(&shipping.Country, "country", "", "Country")
	f.StringVar(&shipping.ZipCode, "zip", "", "Postal code")
	f.StringVar(&shipping.PhoneNo, "phone", "", "Contact phone, at least 10 characters")
	f.StringVar(&method, "method", string(domain.PaymentMethodCard), "Payment method (card, cash_on_delivery)")
	f.StringVar(&cardToken, "card-token", "", "Tokenized card from the card entry widget")
	f.StringVar(&name, "name", "", "Billing name")
	return cmd
}

func describeCheckoutError(err error) error {
	var ce *checkout.Error
	if !errors.As(err, &ce) {
		return err
	}
	if errors.Is(ce.Reason, checkout.ErrPaymentCapturedOrderFailed) && ce.Payment != nil {
		return fmt.Errorf("%w (payment %s, attempt %s): contact support before retrying", err, ce.Payment.ID, ce.AttemptID)
	}
	return fmt.Errorf("%w (attempt %s, code %s)", err, ce.AttemptID, checkout.Code(ce.Reason))
}

func printReceipt(w io.Writer, r *checkout.Receipt) {
	fmt.Fprintf(w, "order %s placed\n", r.OrderID)
	fmt.Fprintf(w, "  payment   %s (%s, %s)\n", r.Payment.ID, r.Payment.Method, r.Payment.Status)
	fmt.Fprintf(w, "  items     %s\n", domain.FormatMoney(r.Breakdown.ItemsPrice))
	fmt.Fprintf(w, "  tax       %s\n", domain.FormatMoney(r.Breakdown.TaxPrice))
	fmt.Fprintf(w, "  shipping  %s\n", domain.FormatMoney(r.Breakdown.ShippingPrice))
	fmt.Fprintf(w, "  total     %s\n", domain.FormatMoney(r.Breakdown.TotalPrice))
}
