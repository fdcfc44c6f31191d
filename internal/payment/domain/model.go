package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrMissingSignature = errors.New("missing_signature")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
)

// Subscription is the slice of a provider subscription the pipeline needs:
// the order it was created for and when the current billing period renews.
type Subscription struct {
	ID               string
	OrderNumber      string
	CustomerEmail    string
	CurrentPeriodEnd time.Time
}

// PaymentIntent is the provider handle returned to the express checkout
// client for confirmation.
type PaymentIntent struct {
	ID           string
	ClientSecret string
}

type CreateIntentParams struct {
	AmountPence  int64
	Currency     string
	ReceiptEmail string
	OrderNumber  string
}

// Client abstracts the payment provider API calls the pipeline makes.
// The production implementation wraps the Stripe SDK; tests substitute fakes.
type Client interface {
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	CreatePaymentIntent(ctx context.Context, params CreateIntentParams) (*PaymentIntent, error)
}
