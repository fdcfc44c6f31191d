package webhook

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/kindbridge/kindbridge/internal/config"
	donationdomain "github.com/kindbridge/kindbridge/internal/donation/domain"
	finalizerservice "github.com/kindbridge/kindbridge/internal/finalizer/service"
	obsmetrics "github.com/kindbridge/kindbridge/internal/observability/metrics"
	orderdomain "github.com/kindbridge/kindbridge/internal/order/domain"
	paymentdomain "github.com/kindbridge/kindbridge/internal/payment/domain"
	"github.com/kindbridge/kindbridge/internal/payment/stripeclient"
	reportpooldomain "github.com/kindbridge/kindbridge/internal/reportpool/domain"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Cfg          config.Config
	Client       paymentdomain.Client
	Finalizer    *finalizerservice.Service
	OrderRepo    orderdomain.Repository
	DonationRepo donationdomain.Repository
	ReportRepo   reportpooldomain.Repository
	Metrics      *obsmetrics.Metrics `optional:"true"`
}

// Service receives Stripe webhook deliveries, verifies the signature against
// the configured secret list and dispatches on event type. Idempotency is
// delegated to the finalizer; a processing error propagates so the provider
// retries the whole event.
type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	cfg          config.Config
	client       paymentdomain.Client
	finalizer    *finalizerservice.Service
	orderRepo    orderdomain.Repository
	donationRepo donationdomain.Repository
	reportRepo   reportpooldomain.Repository
	metrics      *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("payment.webhook"),
		cfg:          p.Cfg,
		client:       p.Client,
		finalizer:    p.Finalizer,
		orderRepo:    p.OrderRepo,
		donationRepo: p.DonationRepo,
		reportRepo:   p.ReportRepo,
		metrics:      p.Metrics,
	}
}

// Event payload shapes decoded from event.Data.Raw. Expandable references
// (payment_intent, subscription) arrive as plain string ids in webhook
// deliveries.
type checkoutSession struct {
	ID              string            `json:"id"`
	Mode            string            `json:"mode"`
	PaymentIntent   string            `json:"payment_intent"`
	Subscription    string            `json:"subscription"`
	Metadata        map[string]string `json:"metadata"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
}

type paymentIntent struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

type invoice struct {
	ID            string `json:"id"`
	Subscription  string `json:"subscription"`
	BillingReason string `json:"billing_reason"`
	CustomerEmail string `json:"customer_email"`
	Parent        struct {
		SubscriptionDetails struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

type subscriptionObject struct {
	ID string `json:"id"`
}

type chargeObject struct {
	ID            string `json:"id"`
	PaymentIntent string `json:"payment_intent"`
}

type refundObject struct {
	ID            string `json:"id"`
	PaymentIntent string `json:"payment_intent"`
}

// HandleWebhook verifies and processes one delivery.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := stripeclient.ConstructEvent(payload, sigHeader, s.cfg.WebhookSecrets)
	if err != nil {
		s.count(string(event.Type), "rejected")
		return err
	}

	err = s.processEvent(ctx, event)
	outcome := "processed"
	if err != nil {
		outcome = "failed"
	}
	s.count(string(event.Type), outcome)
	return err
}

func (s *Service) processEvent(ctx context.Context, event stripe.Event) error {
	occurredAt := time.Unix(event.Created, 0).UTC()

	switch event.Type {
	case "checkout.session.completed":
		return s.handleCheckoutSessionCompleted(ctx, event.Data.Raw, occurredAt)
	case "payment_intent.succeeded":
		return s.handlePaymentIntentSucceeded(ctx, event.Data.Raw, occurredAt)
	case "invoice.payment_succeeded":
		return s.handleInvoicePaymentSucceeded(ctx, event.Data.Raw, occurredAt)
	case "customer.subscription.deleted":
		return s.handleSubscriptionEnded(ctx, event.Data.Raw, donationdomain.RecurringStatusCancelled)
	case "invoice.payment_failed":
		return s.handleInvoicePaymentFailed(ctx, event.Data.Raw)
	case "charge.refunded":
		return s.handleChargeRefunded(ctx, event.Data.Raw)
	case "refund.updated":
		return s.handleRefundUpdated(ctx, event.Data.Raw)
	default:
		// Acknowledged, no-op.
		s.log.Debug("ignoring webhook event", zap.String("type", string(event.Type)))
		return nil
	}
}

func (s *Service) handleCheckoutSessionCompleted(ctx context.Context, raw json.RawMessage, occurredAt time.Time) error {
	var session checkoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return paymentdomain.ErrInvalidPayload
	}

	orderNumber := strings.TrimSpace(session.Metadata["order_number"])
	if orderNumber == "" {
		return nil
	}

	params := finalizerservice.FinalizeParams{
		OrderNumber:   orderNumber,
		PaidAt:        occurredAt,
		CustomerEmail: session.CustomerDetails.Email,
	}
	if session.Mode == "subscription" && session.Subscription != "" {
		sub, err := s.client.GetSubscription(ctx, session.Subscription)
		if err != nil {
			return err
		}
		params.PaymentRef = session.Subscription
		params.IsSubscription = true
		if !sub.CurrentPeriodEnd.IsZero() {
			periodEnd := sub.CurrentPeriodEnd
			params.NextPaymentDate = &periodEnd
		}
	} else {
		params.PaymentRef = session.PaymentIntent
	}

	return s.finalizer.FinalizeOrderByNumber(ctx, params)
}

func (s *Service) handlePaymentIntentSucceeded(ctx context.Context, raw json.RawMessage, occurredAt time.Time) error {
	var intent paymentIntent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return paymentdomain.ErrInvalidPayload
	}

	orderNumber := strings.TrimSpace(intent.Metadata["order_number"])
	if orderNumber == "" {
		return nil
	}

	return s.finalizer.FinalizeOrderByNumber(ctx, finalizerservice.FinalizeParams{
		OrderNumber: orderNumber,
		PaidAt:      occurredAt,
		PaymentRef:  intent.ID,
	})
}

func (s *Service) handleInvoicePaymentSucceeded(ctx context.Context, raw json.RawMessage, occurredAt time.Time) error {
	var inv invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return paymentdomain.ErrInvalidPayload
	}

	subscriptionID := inv.Subscription
	if subscriptionID == "" {
		subscriptionID = inv.Parent.SubscriptionDetails.Subscription
	}
	if subscriptionID == "" {
		return nil
	}

	sub, err := s.client.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub.OrderNumber == "" {
		return nil
	}

	var nextPayment *time.Time
	if !sub.CurrentPeriodEnd.IsZero() {
		periodEnd := sub.CurrentPeriodEnd
		nextPayment = &periodEnd
	}

	customerEmail := inv.CustomerEmail
	if customerEmail == "" {
		customerEmail = sub.CustomerEmail
	}

	if err := s.finalizer.FinalizeOrderByNumber(ctx, finalizerservice.FinalizeParams{
		OrderNumber:     sub.OrderNumber,
		PaidAt:          occurredAt,
		PaymentRef:      subscriptionID,
		IsSubscription:  true,
		CustomerEmail:   customerEmail,
		NextPaymentDate: nextPayment,
	}); err != nil {
		return err
	}

	// First invoice of the subscription: hand out one pooled report per
	// sponsored project. The claim reference keeps retries from taking a
	// second report.
	if inv.BillingReason == "subscription_create" {
		return s.assignSponsorshipReports(ctx, sub.OrderNumber, subscriptionID, sub.CurrentPeriodEnd)
	}
	return nil
}

func (s *Service) assignSponsorshipReports(ctx context.Context, orderNumber, subscriptionID string, periodEnd time.Time) error {
	order, err := s.orderRepo.FindByNumber(ctx, s.db, orderNumber)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}
	if periodEnd.IsZero() {
		periodEnd = time.Now().UTC()
	}
	for _, item := range order.Items {
		if item.SponsorshipProjectID == nil {
			continue
		}
		report, err := s.reportRepo.ClaimNext(ctx, s.db, *item.SponsorshipProjectID, subscriptionID, periodEnd)
		if err != nil {
			return err
		}
		if report != nil {
			s.log.Info("sponsorship report assigned",
				zap.String("subscription_id", subscriptionID),
				zap.String("report_id", report.ID.String()),
			)
		}
	}
	return nil
}

func (s *Service) handleSubscriptionEnded(ctx context.Context, raw json.RawMessage, status string) error {
	var sub subscriptionObject
	if err := json.Unmarshal(raw, &sub); err != nil {
		return paymentdomain.ErrInvalidPayload
	}
	if sub.ID == "" {
		return nil
	}
	_, err := s.donationRepo.MarkRecurringStatus(ctx, s.db, sub.ID, status)
	return err
}

func (s *Service) handleInvoicePaymentFailed(ctx context.Context, raw json.RawMessage) error {
	var inv invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return paymentdomain.ErrInvalidPayload
	}
	subscriptionID := inv.Subscription
	if subscriptionID == "" {
		subscriptionID = inv.Parent.SubscriptionDetails.Subscription
	}
	if subscriptionID == "" {
		return nil
	}
	_, err := s.donationRepo.MarkRecurringStatus(ctx, s.db, subscriptionID, donationdomain.RecurringStatusFailed)
	return err
}

func (s *Service) handleChargeRefunded(ctx context.Context, raw json.RawMessage) error {
	var charge chargeObject
	if err := json.Unmarshal(raw, &charge); err != nil {
		return paymentdomain.ErrInvalidPayload
	}
	if charge.PaymentIntent == "" {
		return nil
	}
	updated, err := s.donationRepo.MarkRefundedByTransactionID(ctx, s.db, charge.PaymentIntent)
	if err != nil {
		return err
	}
	if updated == 0 {
		s.log.Debug("refund with no matching donation", zap.String("payment_intent", charge.PaymentIntent))
	}
	return nil
}

func (s *Service) handleRefundUpdated(ctx context.Context, raw json.RawMessage) error {
	var refund refundObject
	if err := json.Unmarshal(raw, &refund); err != nil {
		return paymentdomain.ErrInvalidPayload
	}
	if refund.PaymentIntent == "" {
		return nil
	}
	_, err := s.donationRepo.MarkRefundedByTransactionID(ctx, s.db, refund.PaymentIntent)
	return err
}

func (s *Service) count(eventType, outcome string) {
	if s.metrics == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	s.metrics.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
}
