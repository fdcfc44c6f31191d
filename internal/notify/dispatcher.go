package notify

import (
	"context"
	"fmt"
	"strings"

	appealdomain "github.com/kindbridge/kindbridge/internal/appeal/domain"
	"github.com/kindbridge/kindbridge/internal/config"
	donationdomain "github.com/kindbridge/kindbridge/internal/donation/domain"
	obsmetrics "github.com/kindbridge/kindbridge/internal/observability/metrics"
	orderdomain "github.com/kindbridge/kindbridge/internal/order/domain"
	"github.com/kindbridge/kindbridge/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Email   email.Provider
	Cfg     config.Config
	Metrics *obsmetrics.Metrics `optional:"true"`
}

// Dispatcher sends donor and fundraiser notifications. Sends are synchronous
// and best-effort: an error is logged and returned so callers can decide
// whether a per-row sent flag may be flipped, but it never aborts
// finalization.
type Dispatcher struct {
	log     *zap.Logger
	email   email.Provider
	cfg     config.Config
	metrics *obsmetrics.Metrics
}

func NewDispatcher(p Params) *Dispatcher {
	return &Dispatcher{
		log:     p.Log.Named("notify"),
		email:   p.Email,
		cfg:     p.Cfg,
		metrics: p.Metrics,
	}
}

// DonorConfirmation covers every item of the order in a single email.
// manageURL is empty for one-off orders.
func (d *Dispatcher) DonorConfirmation(ctx context.Context, order *orderdomain.Order, manageURL string) error {
	items := make([]map[string]any, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, map[string]any{
			"description": itemDescription(item),
			"frequency":   strings.ReplaceAll(strings.ToLower(item.Frequency), "_", "-"),
			"amount":      pounds(item.AmountPence),
		})
	}

	data := map[string]any{
		"subject":      fmt.Sprintf("Thank you for your donation - %s", order.OrderNumber),
		"first_name":   firstNameOrFriend(order.FirstName),
		"order_number": order.OrderNumber,
		"items":        items,
		"total":        pounds(order.TotalPence),
	}
	if manageURL != "" {
		data["manage_url"] = manageURL
	}

	return d.send(ctx, "donor_confirmation", []string{order.Email}, data)
}

func (d *Dispatcher) WaterDonationReceived(ctx context.Context, donation *donationdomain.WaterProjectDonation) error {
	data := map[string]any{
		"subject":      "Your water project donation",
		"first_name":   firstNameOrFriend(donation.FirstName),
		"order_number": donation.OrderNumber,
		"amount":       pounds(donation.AmountPence),
	}
	return d.send(ctx, "water_donation", []string{donation.Email}, data)
}

func (d *Dispatcher) SponsorshipDonationReceived(ctx context.Context, donation *donationdomain.SponsorshipDonation) error {
	data := map[string]any{
		"subject":      "Your sponsorship donation",
		"first_name":   firstNameOrFriend(donation.FirstName),
		"order_number": donation.OrderNumber,
		"amount":       pounds(donation.AmountPence),
	}
	return d.send(ctx, "sponsorship_donation", []string{donation.Email}, data)
}

func (d *Dispatcher) FundraiserNewDonation(ctx context.Context, fundraiser *appealdomain.Fundraiser, donation *donationdomain.Donation) error {
	data := map[string]any{
		"subject":          "Your fundraising page received a donation",
		"owner_name":       fundraiser.OwnerName,
		"fundraiser_title": fundraiser.Title,
		"amount":           pounds(donation.AmountPence),
	}
	return d.send(ctx, "fundraiser_new_donation", []string{fundraiser.OwnerEmail}, data)
}

func (d *Dispatcher) send(ctx context.Context, templateName string, to []string, data map[string]any) error {
	if len(to) == 0 || strings.TrimSpace(to[0]) == "" {
		return nil
	}
	err := d.email.SendTemplate(ctx, to, templateName, data)
	outcome := "sent"
	if err != nil {
		outcome = "failed"
		d.log.Warn("email send failed",
			zap.String("template", templateName),
			zap.Error(err),
		)
	}
	if d.metrics != nil {
		d.metrics.EmailsSent.WithLabelValues(templateName, outcome).Inc()
	}
	return err
}

func itemDescription(item orderdomain.OrderItem) string {
	switch {
	case item.WaterProjectID != nil:
		return "Water project donation"
	case item.SponsorshipProjectID != nil:
		return "Sponsorship donation"
	default:
		label := strings.ToLower(item.DonationType)
		if label != "" {
			label = strings.ToUpper(label[:1]) + label[1:]
		}
		return fmt.Sprintf("%s donation", label)
	}
}

func firstNameOrFriend(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "friend"
	}
	return name
}

func pounds(pence int64) string {
	return fmt.Sprintf("%.2f", float64(pence)/100)
}

var Module = fx.Module("notify",
	fx.Provide(NewDispatcher),
)
