package checkout

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	appealdomain "github.com/kindbridge/kindbridge/internal/appeal/domain"
	"github.com/kindbridge/kindbridge/internal/config"
	orderdomain "github.com/kindbridge/kindbridge/internal/order/domain"
	paymentdomain "github.com/kindbridge/kindbridge/internal/payment/domain"
	projectdomain "github.com/kindbridge/kindbridge/internal/project/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ValidationError is returned when the express checkout request fails a
// business rule. Handlers map it to a 400 response.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

type ExpressItem struct {
	AppealID             *snowflake.ID `json:"appeal_id,omitempty"`
	WaterProjectID       *snowflake.ID `json:"water_project_id,omitempty"`
	SponsorshipProjectID *snowflake.ID `json:"sponsorship_project_id,omitempty"`
	FundraiserID         *snowflake.ID `json:"fundraiser_id,omitempty"`
	AmountPence          int64         `json:"amount_pence"`
	DonationType         string        `json:"donation_type"`
	CountryCode          string        `json:"country_code,omitempty"`
}

type ExpressRequest struct {
	Items         []ExpressItem `json:"items"`
	Email         string        `json:"email"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	SubtotalPence int64         `json:"subtotal_pence"`
	CoverFees     bool          `json:"cover_fees"`
	GiftAid       bool          `json:"gift_aid"`
}

type ExpressResponse struct {
	OrderID             snowflake.ID `json:"order_id"`
	OrderNumber         string       `json:"order_number"`
	PaymentClientSecret string       `json:"payment_client_secret"`
	PaymentIntentID     string       `json:"payment_intent_id"`
}

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Cfg         config.Config
	Pricing     *config.PricingConfigHolder
	GenID       *snowflake.Node
	Client      paymentdomain.Client
	OrderRepo   orderdomain.Repository
	AppealRepo  appealdomain.Repository
	ProjectRepo projectdomain.Repository
}

// Service creates PENDING orders for wallet express checkout and opens the
// matching PaymentIntent. Nothing is persisted when validation fails.
type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         config.Config
	pricing     *config.PricingConfigHolder
	genID       *snowflake.Node
	client      paymentdomain.Client
	orderRepo   orderdomain.Repository
	appealRepo  appealdomain.Repository
	projectRepo projectdomain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("checkout"),
		cfg:         p.Cfg,
		pricing:     p.Pricing,
		genID:       p.GenID,
		client:      p.Client,
		orderRepo:   p.OrderRepo,
		appealRepo:  p.AppealRepo,
		projectRepo: p.ProjectRepo,
	}
}

// Express validates the request, persists a PENDING order and returns the
// client secret the wallet sheet confirms against.
func (s *Service) Express(ctx context.Context, req ExpressRequest) (*ExpressResponse, error) {
	pricing := s.pricing.Get()

	if err := s.validate(ctx, req, pricing); err != nil {
		return nil, err
	}

	fees := int64(0)
	if req.CoverFees {
		fees = cardFee(req.SubtotalPence, s.cfg.CardFeeBasisPoints, s.cfg.CardFeeFixedPence)
	}

	order := &orderdomain.Order{
		ID:            s.genID.Generate(),
		OrderNumber:   s.orderNumber(),
		SubtotalPence: req.SubtotalPence,
		FeesPence:     fees,
		TotalPence:    req.SubtotalPence + fees,
		Currency:      "GBP",
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		GiftAid:       req.GiftAid,
		Status:        orderdomain.OrderStatusPending,
	}
	for _, item := range req.Items {
		donationType := item.DonationType
		if donationType == "" {
			donationType = orderdomain.DonationTypeGeneral
		}
		order.Items = append(order.Items, orderdomain.OrderItem{
			ID:                   s.genID.Generate(),
			OrderID:              order.ID,
			AppealID:             item.AppealID,
			WaterProjectID:       item.WaterProjectID,
			SponsorshipProjectID: item.SponsorshipProjectID,
			FundraiserID:         item.FundraiserID,
			AmountPence:          item.AmountPence,
			Frequency:            orderdomain.FrequencyOneOff,
			DonationType:         donationType,
			CountryCode:          strings.ToUpper(item.CountryCode),
		})
	}

	if err := s.orderRepo.Create(ctx, s.db, order); err != nil {
		return nil, err
	}

	intent, err := s.client.CreatePaymentIntent(ctx, paymentdomain.CreateIntentParams{
		AmountPence:  order.TotalPence,
		Currency:     "gbp",
		ReceiptEmail: order.Email,
		OrderNumber:  order.OrderNumber,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("express order created",
		zap.String("order_number", order.OrderNumber),
		zap.Int64("total_pence", order.TotalPence),
		zap.String("payment_intent_id", intent.ID),
	)

	return &ExpressResponse{
		OrderID:             order.ID,
		OrderNumber:         order.OrderNumber,
		PaymentClientSecret: intent.ClientSecret,
		PaymentIntentID:     intent.ID,
	}, nil
}

func (s *Service) validate(ctx context.Context, req ExpressRequest, pricing config.PricingConfig) error {
	if strings.TrimSpace(req.Email) == "" {
		return invalid("email is required")
	}
	if len(req.Items) == 0 {
		return invalid("at least one item is required")
	}
	if len(req.Items) > pricing.MaxExpressItemCount {
		return invalid("too many items: %d (max %d)", len(req.Items), pricing.MaxExpressItemCount)
	}

	var sum int64
	for i, item := range req.Items {
		targets := 0
		if item.AppealID != nil {
			targets++
		}
		if item.WaterProjectID != nil {
			targets++
		}
		if item.SponsorshipProjectID != nil {
			targets++
		}
		if targets != 1 {
			return invalid("item %d must name exactly one donation target", i)
		}
		if item.AmountPence <= 0 {
			return invalid("item %d amount must be positive", i)
		}
		if item.DonationType != "" && !orderdomain.ValidDonationType(item.DonationType) {
			return invalid("item %d has unknown donation type %q", i, item.DonationType)
		}

		switch {
		case item.AppealID != nil:
			if item.AmountPence < pricing.MinDonationPence {
				return invalid("item %d amount below minimum donation", i)
			}
			appeal, err := s.appealRepo.FindLiveByID(ctx, s.db, *item.AppealID)
			if err != nil {
				return err
			}
			if appeal == nil {
				return invalid("item %d appeal not found or not live", i)
			}
		case item.WaterProjectID != nil:
			code := strings.ToUpper(item.CountryCode)
			price, ok := pricing.WaterPrice(code)
			if !ok {
				return invalid("item %d has no water price for country %q", i, code)
			}
			if item.AmountPence != price {
				return invalid("item %d amount %d does not match water price %d", i, item.AmountPence, price)
			}
			project, err := s.projectRepo.FindWaterProjectByID(ctx, s.db, *item.WaterProjectID)
			if err != nil {
				return err
			}
			if project == nil {
				return invalid("item %d water project not found", i)
			}
		case item.SponsorshipProjectID != nil:
			if item.AmountPence < pricing.SponsorshipMinMonthly {
				return invalid("item %d amount below the sponsorship minimum", i)
			}
			project, err := s.projectRepo.FindSponsorshipProjectByID(ctx, s.db, *item.SponsorshipProjectID)
			if err != nil {
				return err
			}
			if project == nil {
				return invalid("item %d sponsorship project not found", i)
			}
			if item.AmountPence < project.MonthlyPricePence {
				return invalid("item %d amount below sponsorship price", i)
			}
		}

		sum += item.AmountPence
	}

	if sum != req.SubtotalPence {
		return invalid("subtotal %d does not match item sum %d", req.SubtotalPence, sum)
	}
	if req.SubtotalPence > pricing.MaxExpressTotalPence {
		return invalid("subtotal exceeds the express checkout limit")
	}
	return nil
}

// orderNumber derives a human-readable order reference from a snowflake id.
func (s *Service) orderNumber() string {
	id := s.genID.Generate()
	return "KB-" + strings.ToUpper(strconv.FormatInt(id.Int64(), 36))
}

func cardFee(subtotal, basisPoints, fixed int64) int64 {
	return subtotal*basisPoints/10_000 + fixed
}
