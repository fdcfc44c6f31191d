package stripeclient

import (
	"context"
	"strings"
	"time"

	paymentdomain "github.com/kindbridge/kindbridge/internal/payment/domain"
	"github.com/stripe/stripe-go/v82"
)

// Client wraps the Stripe SDK behind the payment domain interface.
type Client struct {
	sc *stripe.Client
}

func New(secretKey string) *Client {
	return &Client{sc: stripe.NewClient(secretKey)}
}

func (c *Client) GetSubscription(ctx context.Context, id string) (*paymentdomain.Subscription, error) {
	sub, err := c.sc.V1Subscriptions.Retrieve(ctx, id, nil)
	if err != nil {
		return nil, err
	}

	out := &paymentdomain.Subscription{
		ID:          sub.ID,
		OrderNumber: strings.TrimSpace(sub.Metadata["order_number"]),
	}
	// The current period end lives on the subscription items.
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item.CurrentPeriodEnd > 0 {
				out.CurrentPeriodEnd = time.Unix(item.CurrentPeriodEnd, 0).UTC()
				break
			}
		}
	}
	if sub.Customer != nil {
		out.CustomerEmail = sub.Customer.Email
	}
	return out, nil
}

func (c *Client) CreatePaymentIntent(ctx context.Context, params paymentdomain.CreateIntentParams) (*paymentdomain.PaymentIntent, error) {
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "gbp"
	}

	createParams := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(params.AmountPence),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"order_number": params.OrderNumber,
		},
	}
	if email := strings.TrimSpace(params.ReceiptEmail); email != "" {
		createParams.ReceiptEmail = stripe.String(email)
	}

	intent, err := c.sc.V1PaymentIntents.Create(ctx, createParams)
	if err != nil {
		return nil, err
	}
	return &paymentdomain.PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}
