package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	appealdomain "github.com/kindbridge/kindbridge/internal/appeal/domain"
	"github.com/kindbridge/kindbridge/internal/config"
	donationdomain "github.com/kindbridge/kindbridge/internal/donation/domain"
	donordomain "github.com/kindbridge/kindbridge/internal/donor/domain"
	"github.com/kindbridge/kindbridge/internal/notify"
	obsmetrics "github.com/kindbridge/kindbridge/internal/observability/metrics"
	orderdomain "github.com/kindbridge/kindbridge/internal/order/domain"
	"github.com/kindbridge/kindbridge/internal/portal"
	projectdomain "github.com/kindbridge/kindbridge/internal/project/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const portalTokenTTL = 30 * 24 * time.Hour

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Cfg          config.Config
	OrderRepo    orderdomain.Repository
	DonorRepo    donordomain.Repository
	DonationRepo donationdomain.Repository
	ProjectRepo  projectdomain.Repository
	AppealRepo   appealdomain.Repository
	Notifier     *notify.Dispatcher
	Metrics      *obsmetrics.Metrics `optional:"true"`
}

// Service turns a paid order into completed donation records and
// notifications. Every step is individually idempotency-guarded because the
// webhook provider retries on failure and events for the same order arrive
// concurrently; unique constraints are the backstop.
type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	cfg          config.Config
	orderRepo    orderdomain.Repository
	donorRepo    donordomain.Repository
	donationRepo donationdomain.Repository
	projectRepo  projectdomain.Repository
	appealRepo   appealdomain.Repository
	notifier     *notify.Dispatcher
	metrics      *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("finalizer"),
		genID:        p.GenID,
		cfg:          p.Cfg,
		orderRepo:    p.OrderRepo,
		donorRepo:    p.DonorRepo,
		donationRepo: p.DonationRepo,
		projectRepo:  p.ProjectRepo,
		appealRepo:   p.AppealRepo,
		notifier:     p.Notifier,
		metrics:      p.Metrics,
	}
}

type FinalizeParams struct {
	OrderNumber     string
	PaidAt          time.Time
	PaymentRef      string
	IsSubscription  bool
	CustomerEmail   string
	NextPaymentDate *time.Time
}

// FinalizeOrderByNumber transitions the order and its derived donation rows
// to a completed state. Unknown order numbers are a silent no-op; database
// errors propagate so the webhook is retried; email failures never do.
func (s *Service) FinalizeOrderByNumber(ctx context.Context, p FinalizeParams) error {
	orderNumber := strings.TrimSpace(p.OrderNumber)
	if orderNumber == "" {
		return nil
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC()
	}

	order, err := s.orderRepo.FindByNumber(ctx, s.db, orderNumber)
	if err != nil {
		return err
	}
	if order == nil {
		s.log.Debug("finalize skipped, order not found", zap.String("order_number", orderNumber))
		return nil
	}

	wasAlreadyCompleted := order.Status == orderdomain.OrderStatusCompleted

	donorID, err := s.ensureDonor(ctx, order, p.CustomerEmail)
	if err != nil {
		return err
	}

	legacyRows, err := s.donationRepo.FindPendingLegacyByOrderNumber(ctx, s.db, orderNumber)
	if err != nil {
		return err
	}
	legacyHandled := len(legacyRows) > 0
	if legacyHandled {
		// Older single-table flow: complete the pre-created rows instead
		// of materializing new per-category ones.
		if err := s.donationRepo.CompleteLegacy(ctx, s.db, orderNumber, p.PaymentRef); err != nil {
			return err
		}
	} else {
		// Legacy rows completed by a prior run still suppress new-path
		// creation when the order update did not commit.
		legacyHandled, err = s.donationRepo.HasLegacyForOrderNumber(ctx, s.db, orderNumber)
		if err != nil {
			return err
		}
	}

	if !wasAlreadyCompleted && !legacyHandled {
		if err := s.createDonationRows(ctx, order, donorID, p.PaymentRef); err != nil {
			return err
		}
	}

	// Concurrent deliveries for the same order can both observe PENDING;
	// only the one winning the guarded transition sends the one-shot
	// notifications.
	wonCompletion := false
	if !wasAlreadyCompleted {
		rows, err := s.orderRepo.MarkCompleted(ctx, s.db, orderNumber, p.PaidAt)
		if err != nil {
			return err
		}
		wonCompletion = rows > 0
		if wonCompletion && s.metrics != nil {
			s.metrics.OrdersFinalized.Inc()
		}
	}

	if p.IsSubscription && p.PaymentRef != "" {
		if err := s.upsertRecurring(ctx, order, donorID, p, wasAlreadyCompleted); err != nil {
			return err
		}
	}

	if wonCompletion {
		s.sendDonorConfirmation(ctx, order, p)
	}

	if err := s.reviewCategoryDonations(ctx, orderNumber, p.PaymentRef); err != nil {
		return err
	}

	if wonCompletion {
		s.notifyFundraisers(ctx, orderNumber)
	}

	return nil
}

func (s *Service) ensureDonor(ctx context.Context, order *orderdomain.Order, customerEmail string) (*snowflake.ID, error) {
	email := order.Email
	if strings.TrimSpace(email) == "" {
		email = customerEmail
	}
	donor, err := s.donorRepo.FindOrCreateByEmail(ctx, s.db, email, order.FirstName, order.LastName)
	if err != nil {
		return nil, err
	}
	if donor == nil {
		return nil, nil
	}
	id := donor.ID
	return &id, nil
}

func (s *Service) createDonationRows(ctx context.Context, order *orderdomain.Order, donorID *snowflake.ID, paymentRef string) error {
	now := time.Now().UTC()
	for i := range order.Items {
		item := order.Items[i]
		itemID := item.ID
		orderID := order.ID

		switch {
		case item.WaterProjectID != nil:
			row := &donationdomain.WaterProjectDonation{
				ID:              s.genID.Generate(),
				OrderID:         &orderID,
				OrderItemID:     &itemID,
				OrderNumber:     order.OrderNumber,
				WaterProjectID:  *item.WaterProjectID,
				DonorID:         donorID,
				AmountPence:     item.AmountPence,
				Frequency:       item.Frequency,
				DonationType:    item.DonationType,
				GiftAid:         order.GiftAid,
				CountryCode:     item.CountryCode,
				BillingSnapshot: billingSnapshot(order),
				TransactionID:   paymentRef,
				Status:          donationdomain.StatusWaitingToReview,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if _, err := s.donationRepo.CreateWaterDonation(ctx, s.db, row); err != nil {
				return err
			}
		case item.SponsorshipProjectID != nil:
			row := &donationdomain.SponsorshipDonation{
				ID:                   s.genID.Generate(),
				OrderID:              &orderID,
				OrderItemID:          &itemID,
				OrderNumber:          order.OrderNumber,
				SponsorshipProjectID: *item.SponsorshipProjectID,
				DonorID:              donorID,
				AmountPence:          item.AmountPence,
				Frequency:            item.Frequency,
				DonationType:         item.DonationType,
				GiftAid:              order.GiftAid,
				BillingSnapshot:      billingSnapshot(order),
				TransactionID:        paymentRef,
				Status:               donationdomain.StatusWaitingToReview,
				CreatedAt:            now,
				UpdatedAt:            now,
			}
			if _, err := s.donationRepo.CreateSponsorshipDonation(ctx, s.db, row); err != nil {
				return err
			}
		default:
			row := &donationdomain.Donation{
				ID:              s.genID.Generate(),
				OrderID:         &orderID,
				OrderItemID:     &itemID,
				OrderNumber:     order.OrderNumber,
				AppealID:        item.AppealID,
				FundraiserID:    item.FundraiserID,
				DonorID:         donorID,
				AmountPence:     item.AmountPence,
				Frequency:       item.Frequency,
				DonationType:    item.DonationType,
				GiftAid:         order.GiftAid,
				BillingSnapshot: billingSnapshot(order),
				TransactionID:   paymentRef,
				Status:          donationdomain.StatusCompleted,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if _, err := s.donationRepo.CreateDonation(ctx, s.db, row); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) upsertRecurring(ctx context.Context, order *orderdomain.Order, donorID *snowflake.ID, p FinalizeParams, wasAlreadyCompleted bool) error {
	existing, err := s.donationRepo.FindRecurringBySubscriptionID(ctx, s.db, p.PaymentRef)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return s.donationRepo.TouchRecurringBySubscriptionID(ctx, s.db, p.PaymentRef,
			donationdomain.RecurringStatusActive, p.PaidAt, p.NextPaymentDate)
	}
	if wasAlreadyCompleted {
		return nil
	}

	now := time.Now().UTC()
	for i := range order.Items {
		item := order.Items[i]
		if !item.IsRecurring() {
			continue
		}
		itemID := item.ID
		orderID := order.ID
		row := &donationdomain.RecurringDonation{
			ID:              s.genID.Generate(),
			SubscriptionID:  p.PaymentRef,
			OrderID:         &orderID,
			OrderItemID:     &itemID,
			OrderNumber:     order.OrderNumber,
			DonorID:         donorID,
			AmountPence:     item.AmountPence,
			Frequency:       item.Frequency,
			Status:          donationdomain.RecurringStatusActive,
			LastPaymentDate: &p.PaidAt,
			NextPaymentDate: p.NextPaymentDate,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if _, err := s.donationRepo.CreateRecurring(ctx, s.db, row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) sendDonorConfirmation(ctx context.Context, order *orderdomain.Order, p FinalizeParams) {
	manageURL := ""
	if p.IsSubscription && p.PaymentRef != "" && strings.TrimSpace(p.CustomerEmail) != "" {
		token, err := portal.Sign(s.cfg.PortalTokenSecret, p.PaymentRef, p.CustomerEmail, portalTokenTTL)
		if err != nil {
			s.log.Warn("portal token signing failed", zap.Error(err))
		} else {
			manageURL = portal.ManageURL(s.cfg.PublicBaseURL, token)
		}
	}
	// Best-effort: a failed confirmation is logged inside the dispatcher
	// and not retried.
	_ = s.notifier.DonorConfirmation(ctx, order, manageURL)
}

// reviewCategoryDonations sweeps every water/sponsorship row tied to the
// order, whether just created or left over from a prior partial run. The
// per-row EmailSent flag, not the order-level guard, prevents duplicate
// notifications across repeated finalizations.
func (s *Service) reviewCategoryDonations(ctx context.Context, orderNumber, paymentRef string) error {
	waterRows, err := s.donationRepo.FindWaterByOrderNumber(ctx, s.db, orderNumber)
	if err != nil {
		return err
	}
	for i := range waterRows {
		row := waterRows[i]
		if row.Status == donationdomain.StatusPending {
			if err := s.donationRepo.AdvanceWaterToReview(ctx, s.db, row.ID, paymentRef); err != nil {
				return err
			}
		}
		if err := s.projectRepo.EnsureWaterProjectStatus(ctx, s.db, row.WaterProjectID, projectdomain.ProjectStatusWaitingToReview); err != nil {
			return err
		}
		if !row.EmailSent {
			if sendErr := s.notifier.WaterDonationReceived(ctx, &row); sendErr == nil {
				if err := s.donationRepo.MarkWaterEmailSent(ctx, s.db, row.ID); err != nil {
					return err
				}
			}
		}
	}

	sponsorshipRows, err := s.donationRepo.FindSponsorshipByOrderNumber(ctx, s.db, orderNumber)
	if err != nil {
		return err
	}
	for i := range sponsorshipRows {
		row := sponsorshipRows[i]
		if row.Status == donationdomain.StatusPending {
			if err := s.donationRepo.AdvanceSponsorshipToReview(ctx, s.db, row.ID, paymentRef); err != nil {
				return err
			}
		}
		if err := s.projectRepo.EnsureSponsorshipProjectStatus(ctx, s.db, row.SponsorshipProjectID, projectdomain.ProjectStatusWaitingToReview); err != nil {
			return err
		}
		if !row.EmailSent {
			if sendErr := s.notifier.SponsorshipDonationReceived(ctx, &row); sendErr == nil {
				if err := s.donationRepo.MarkSponsorshipEmailSent(ctx, s.db, row.ID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *Service) notifyFundraisers(ctx context.Context, orderNumber string) {
	donations, err := s.donationRepo.FindDonationsByOrderNumber(ctx, s.db, orderNumber)
	if err != nil {
		s.log.Warn("fundraiser notification lookup failed", zap.Error(err))
		return
	}
	for i := range donations {
		donation := donations[i]
		if donation.FundraiserID == nil {
			continue
		}
		fundraiser, err := s.appealRepo.FindFundraiserByID(ctx, s.db, *donation.FundraiserID)
		if err != nil || fundraiser == nil {
			continue
		}
		_ = s.notifier.FundraiserNewDonation(ctx, fundraiser, &donation)
	}
}

func billingSnapshot(order *orderdomain.Order) donationdomain.BillingSnapshot {
	return donationdomain.BillingSnapshot{
		FirstName: order.FirstName,
		LastName:  order.LastName,
		Email:     order.Email,
		Address1:  order.Address1,
		Address2:  order.Address2,
		City:      order.City,
		Postcode:  order.Postcode,
		Country:   order.Country,
	}
}
