package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	appealdomain "github.com/kindbridge/kindbridge/internal/appeal/domain"
	appealrepo "github.com/kindbridge/kindbridge/internal/appeal/repository"
	"github.com/kindbridge/kindbridge/internal/config"
	donationdomain "github.com/kindbridge/kindbridge/internal/donation/domain"
	donationrepo "github.com/kindbridge/kindbridge/internal/donation/repository"
	donorrepo "github.com/kindbridge/kindbridge/internal/donor/repository"
	"github.com/kindbridge/kindbridge/internal/migration"
	"github.com/kindbridge/kindbridge/internal/notify"
	orderdomain "github.com/kindbridge/kindbridge/internal/order/domain"
	orderrepo "github.com/kindbridge/kindbridge/internal/order/repository"
	projectdomain "github.com/kindbridge/kindbridge/internal/project/domain"
	projectrepo "github.com/kindbridge/kindbridge/internal/project/repository"
	"github.com/kindbridge/kindbridge/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// recordingProvider counts template sends and can be told to fail.
type recordingProvider struct {
	mu   sync.Mutex
	sent map[string]int
	fail map[string]bool
}

func newRecordingProvider() *recordingProvider {
	return &recordingProvider{sent: map[string]int{}, fail: map[string]bool{}}
}

func (p *recordingProvider) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	return nil
}

func (p *recordingProvider) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail[templateName] {
		return fmt.Errorf("smtp unavailable")
	}
	p.sent[templateName]++
	return nil
}

func (p *recordingProvider) count(templateName string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent[templateName]
}

func (p *recordingProvider) setFail(templateName string, fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail[templateName] = fail
}

type testEnv struct {
	svc      *Service
	db       *gorm.DB
	node     *snowflake.Node
	provider *recordingProvider
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithOrderRepo(t, orderrepo.Provide())
}

func newTestEnvWithOrderRepo(t *testing.T, orders orderdomain.Repository) *testEnv {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := migration.AutoMigrate(conn); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	cfg := config.Config{
		PublicBaseURL:     "https://donate.example.org",
		PortalTokenSecret: "test-secret",
	}

	provider := newRecordingProvider()
	dispatcher := notify.NewDispatcher(notify.Params{
		Log:   zap.NewNop(),
		Email: provider,
		Cfg:   cfg,
	})

	svc := NewService(Params{
		DB:           conn,
		Log:          zap.NewNop(),
		GenID:        node,
		Cfg:          cfg,
		OrderRepo:    orders,
		DonorRepo:    donorrepo.Provide(node),
		DonationRepo: donationrepo.Provide(),
		ProjectRepo:  projectrepo.Provide(),
		AppealRepo:   appealrepo.Provide(),
		Notifier:     dispatcher,
	})

	return &testEnv{svc: svc, db: conn, node: node, provider: provider}
}

func (e *testEnv) seedOrder(t *testing.T, items []orderdomain.OrderItem) *orderdomain.Order {
	t.Helper()
	order := &orderdomain.Order{
		ID:          e.node.Generate(),
		OrderNumber: fmt.Sprintf("KB-%s", e.node.Generate()),
		Email:       "donor@example.org",
		FirstName:   "Aisha",
		LastName:    "Khan",
		Status:      orderdomain.OrderStatusPending,
	}
	var subtotal int64
	for i := range items {
		items[i].ID = e.node.Generate()
		items[i].OrderID = order.ID
		subtotal += items[i].AmountPence
	}
	order.Items = items
	order.SubtotalPence = subtotal
	order.TotalPence = subtotal
	if err := e.db.Create(order).Error; err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}
	return order
}

func TestFinalizeUnknownOrderIsNoOp(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.FinalizeOrderByNumber(context.Background(), FinalizeParams{
		OrderNumber: "KB-DOES-NOT-EXIST",
		PaymentRef:  "pi_123",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	var count int64
	env.db.Model(&donationdomain.Donation{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no donation rows, got %d", count)
	}
}

func TestFinalizeMixedOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	waterProject := projectdomain.WaterProject{ID: env.node.Generate(), Name: "Chad well", CountryCode: "TD"}
	sponsorshipProject := projectdomain.SponsorshipProject{ID: env.node.Generate(), Name: "Orphan sponsorship", MonthlyPricePence: 3500}
	if err := env.db.Create(&waterProject).Error; err != nil {
		t.Fatalf("seed water project: %v", err)
	}
	if err := env.db.Create(&sponsorshipProject).Error; err != nil {
		t.Fatalf("seed sponsorship project: %v", err)
	}

	appealID := env.node.Generate()
	waterID := waterProject.ID
	sponsorshipID := sponsorshipProject.ID
	order := env.seedOrder(t, []orderdomain.OrderItem{
		{AppealID: &appealID, AmountPence: 2000, Frequency: orderdomain.FrequencyOneOff, DonationType: orderdomain.DonationTypeZakat},
		{WaterProjectID: &waterID, AmountPence: 30000, Frequency: orderdomain.FrequencyOneOff, DonationType: orderdomain.DonationTypeGeneral, CountryCode: "TD"},
		{SponsorshipProjectID: &sponsorshipID, AmountPence: 3500, Frequency: orderdomain.FrequencyOneOff, DonationType: orderdomain.DonationTypeGeneral},
	})

	err := env.svc.FinalizeOrderByNumber(ctx, FinalizeParams{
		OrderNumber: order.OrderNumber,
		PaymentRef:  "pi_abc",
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	var got orderdomain.Order
	if err := env.db.Where("order_number = ?", order.OrderNumber).First(&got).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if got.Status != orderdomain.OrderStatusCompleted {
		t.Fatalf("expected order COMPLETED, got %s", got.Status)
	}
	if got.CompletedAt == nil {
		t.Fatal("expected completed_at to be set")
	}

	var donation donationdomain.Donation
	if err := env.db.Where("order_number = ?", order.OrderNumber).First(&donation).Error; err != nil {
		t.Fatalf("load donation: %v", err)
	}
	if donation.Status != donationdomain.StatusCompleted {
		t.Fatalf("expected appeal donation COMPLETED, got %s", donation.Status)
	}
	if donation.TransactionID != "pi_abc" {
		t.Fatalf("expected transaction id pi_abc, got %s", donation.TransactionID)
	}
	if donation.Email != "donor@example.org" {
		t.Fatalf("expected billing snapshot email, got %s", donation.Email)
	}

	var water donationdomain.WaterProjectDonation
	if err := env.db.Where("order_number = ?", order.OrderNumber).First(&water).Error; err != nil {
		t.Fatalf("load water donation: %v", err)
	}
	if water.Status != donationdomain.StatusWaitingToReview {
		t.Fatalf("expected water donation WAITING_TO_REVIEW, got %s", water.Status)
	}
	if water.CountryCode != "TD" {
		t.Fatalf("expected country TD, got %s", water.CountryCode)
	}

	var sponsorship donationdomain.SponsorshipDonation
	if err := env.db.Where("order_number = ?", order.OrderNumber).First(&sponsorship).Error; err != nil {
		t.Fatalf("load sponsorship donation: %v", err)
	}
	if sponsorship.Status != donationdomain.StatusWaitingToReview {
		t.Fatalf("expected sponsorship donation WAITING_TO_REVIEW, got %s", sponsorship.Status)
	}

	var project projectdomain.WaterProject
	if err := env.db.First(&project, "id = ?", waterProject.ID).Error; err != nil {
		t.Fatalf("load water project: %v", err)
	}
	if project.Status != projectdomain.ProjectStatusWaitingToReview {
		t.Fatalf("expected water project status backfilled, got %q", project.Status)
	}

	if n := env.provider.count("donor_confirmation"); n != 1 {
		t.Fatalf("expected 1 donor confirmation, got %d", n)
	}
	if n := env.provider.count("water_donation"); n != 1 {
		t.Fatalf("expected 1 water donation email, got %d", n)
	}
	if n := env.provider.count("sponsorship_donation"); n != 1 {
		t.Fatalf("expected 1 sponsorship donation email, got %d", n)
	}
}

func TestFinalizeTwiceIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	waterProject := projectdomain.WaterProject{ID: env.node.Generate(), Name: "Niger well", CountryCode: "NE"}
	if err := env.db.Create(&waterProject).Error; err != nil {
		t.Fatalf("seed water project: %v", err)
	}

	appealID := env.node.Generate()
	waterID := waterProject.ID
	order := env.seedOrder(t, []orderdomain.OrderItem{
		{AppealID: &appealID, AmountPence: 2000, Frequency: orderdomain.FrequencyOneOff, DonationType: orderdomain.DonationTypeGeneral},
		{WaterProjectID: &waterID, AmountPence: 30000, Frequency: orderdomain.FrequencyOneOff, DonationType: orderdomain.DonationTypeGeneral, CountryCode: "NE"},
	})

	params := FinalizeParams{OrderNumber: order.OrderNumber, PaymentRef: "pi_retry"}
	for i := 0; i < 3; i++ {
		if err := env.svc.FinalizeOrderByNumber(ctx, params); err != nil {
			t.Fatalf("finalize attempt %d: %v", i+1, err)
		}
	}

	var donationCount, waterCount int64
	env.db.Model(&donationdomain.Donation{}).Where("order_number = ?", order.OrderNumber).Count(&donationCount)
	env.db.Model(&donationdomain.WaterProjectDonation{}).Where("order_number = ?", order.OrderNumber).Count(&waterCount)
	if donationCount != 1 {
		t.Fatalf("expected 1 donation row, got %d", donationCount)
	}
	if waterCount != 1 {
		t.Fatalf("expected 1 water donation row, got %d", waterCount)
	}

	if n := env.provider.count("donor_confirmation"); n != 1 {
		t.Fatalf("expected exactly 1 donor confirmation after retries, got %d", n)
	}
	if n := env.provider.count("water_donation"); n != 1 {
		t.Fatalf("expected exactly 1 water email after retries, got %d", n)
	}
}

func TestFinalizeLegacyRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appealID := env.node.Generate()
	order := env.seedOrder(t, []orderdomain.OrderItem{
		{AppealID: &appealID, AmountPence: 5000, Frequency: orderdomain.FrequencyOneOff, DonationType: orderdomain.DonationTypeGeneral},
	})

	// Pre-created by the old flow: carries the order number, no item ref.
	legacy := donationdomain.Donation{
		ID:          env.node.Generate(),
		OrderNumber: order.OrderNumber,
		AppealID:    &appealID,
		AmountPence: 5000,
		Frequency:   orderdomain.FrequencyOneOff,
		Status:      donationdomain.StatusPending,
	}
	if err := env.db.Create(&legacy).Error; err != nil {
		t.Fatalf("seed legacy donation: %v", err)
	}

	err := env.svc.FinalizeOrderByNumber(ctx, FinalizeParams{
		OrderNumber: order.OrderNumber,
		PaymentRef:  "pi_legacy",
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	var rows []donationdomain.Donation
	if err := env.db.Where("order_number = ?", order.OrderNumber).Find(&rows).Error; err != nil {
		t.Fatalf("load donations: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected legacy path to suppress new rows, got %d rows", len(rows))
	}
	if rows[0].Status != donationdomain.StatusCompleted {
		t.Fatalf("expected legacy row COMPLETED, got %s", rows[0].Status)
	}
	if rows[0].TransactionID != "pi_legacy" {
		t.Fatalf("expected transaction id backfilled, got %q", rows[0].TransactionID)
	}
}

func TestFinalizeCompletedLegacyRowsSuppressNewRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appealID := env.node.Generate()
	order := env.seedOrder(t, []orderdomain.OrderItem{
		{AppealID: &appealID, AmountPence: 5000, Frequency: orderdomain.FrequencyOneOff, DonationType: orderdomain.DonationTypeGeneral},
	})

	// A prior run completed the legacy row but crashed before the order
	// update committed.
	legacy := donationdomain.Donation{
		ID:          env.node.Generate(),
		OrderNumber: order.OrderNumber,
		AppealID:    &appealID,
		AmountPence: 5000,
		Frequency:   orderdomain.FrequencyOneOff,
		Status:      donationdomain.StatusCompleted,
	}
	if err := env.db.Create(&legacy).Error; err != nil {
		t.Fatalf("seed legacy donation: %v", err)
	}

	err := env.svc.FinalizeOrderByNumber(ctx, FinalizeParams{
		OrderNumber: order.OrderNumber,
		PaymentRef:  "pi_legacy_retry",
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	var rows []donationdomain.Donation
	if err := env.db.Where("order_number = ?", order.OrderNumber).Find(&rows).Error; err != nil {
		t.Fatalf("load donations: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected completed legacy rows to suppress new rows, got %d rows", len(rows))
	}

	var got orderdomain.Order
	if err := env.db.Where("order_number = ?", order.OrderNumber).First(&got).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if got.Status != orderdomain.OrderStatusCompleted {
		t.Fatalf("expected order COMPLETED, got %s", got.Status)
	}
}

// rivalOrderRepo completes the order underneath after handing back the
// PENDING read, standing in for a concurrent delivery committing between
// this run's read and its guarded update.
type rivalOrderRepo struct {
	orderdomain.Repository
	once sync.Once
}

func (r *rivalOrderRepo) FindByNumber(ctx context.Context, conn *gorm.DB, orderNumber string) (*orderdomain.Order, error) {
	order, err := r.Repository.FindByNumber(ctx, conn, orderNumber)
	if err != nil || order == nil {
		return order, err
	}
	r.once.Do(func() {
		_, _ = r.Repository.MarkCompleted(ctx, conn, orderNumber, time.Now().UTC())
	})
	return order, err
}

func TestLosingCompletionRaceSendsNoConfirmation(t *testing.T) {
	env := newTestEnvWithOrderRepo(t, &rivalOrderRepo{Repository: orderrepo.Provide()})
	ctx := context.Background()

	appealID := env.node.Generate()
	order := env.seedOrder(t, []orderdomain.OrderItem{
		{AppealID: &appealID, AmountPence: 2000, Frequency: orderdomain.FrequencyOneOff, DonationType: orderdomain.DonationTypeGeneral},
	})

	err := env.svc.FinalizeOrderByNumber(ctx, FinalizeParams{
		OrderNumber: order.OrderNumber,
		PaymentRef:  "pi_race",
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	var got orderdomain.Order
	if err := env.db.Where("order_number = ?", order.OrderNumber).First(&got).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if got.Status != orderdomain.OrderStatusCompleted {
		t.Fatalf("expected order COMPLETED, got %s", got.Status)
	}

	if n := env.provider.count("donor_confirmation"); n != 0 {
		t.Fatalf("expected the losing run to send no confirmation, got %d", n)
	}
}

func TestFinalizeSubscriptionRecurring(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appealID := env.node.Generate()
	order := env.seedOrder(t, []orderdomain.OrderItem{
		{AppealID: &appealID, AmountPence: 1000, Frequency: orderdomain.FrequencyMonthly, DonationType: orderdomain.DonationTypeGeneral},
	})

	firstPaid := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	firstNext := firstPaid.AddDate(0, 1, 0)
	err := env.svc.FinalizeOrderByNumber(ctx, FinalizeParams{
		OrderNumber:     order.OrderNumber,
		PaidAt:          firstPaid,
		PaymentRef:      "sub_123",
		IsSubscription:  true,
		CustomerEmail:   "donor@example.org",
		NextPaymentDate: &firstNext,
	})
	if err != nil {
		t.Fatalf("finalize first invoice: %v", err)
	}

	var recurring []donationdomain.RecurringDonation
	if err := env.db.Where("subscription_id = ?", "sub_123").Find(&recurring).Error; err != nil {
		t.Fatalf("load recurring: %v", err)
	}
	if len(recurring) != 1 {
		t.Fatalf("expected 1 recurring row, got %d", len(recurring))
	}
	if recurring[0].Status != donationdomain.RecurringStatusActive {
		t.Fatalf("expected ACTIVE, got %s", recurring[0].Status)
	}
	if recurring[0].NextPaymentDate == nil || !recurring[0].NextPaymentDate.Equal(firstNext) {
		t.Fatalf("expected next payment %v, got %v", firstNext, recurring[0].NextPaymentDate)
	}

	// Renewal: same subscription, later dates. Must update, not insert.
	renewalPaid := firstNext
	renewalNext := renewalPaid.AddDate(0, 1, 0)
	err = env.svc.FinalizeOrderByNumber(ctx, FinalizeParams{
		OrderNumber:     order.OrderNumber,
		PaidAt:          renewalPaid,
		PaymentRef:      "sub_123",
		IsSubscription:  true,
		NextPaymentDate: &renewalNext,
	})
	if err != nil {
		t.Fatalf("finalize renewal: %v", err)
	}

	recurring = nil
	if err := env.db.Where("subscription_id = ?", "sub_123").Find(&recurring).Error; err != nil {
		t.Fatalf("reload recurring: %v", err)
	}
	if len(recurring) != 1 {
		t.Fatalf("expected renewal to update in place, got %d rows", len(recurring))
	}
	if recurring[0].LastPaymentDate == nil || !recurring[0].LastPaymentDate.Equal(renewalPaid) {
		t.Fatalf("expected last payment %v, got %v", renewalPaid, recurring[0].LastPaymentDate)
	}
	if recurring[0].NextPaymentDate == nil || !recurring[0].NextPaymentDate.Equal(renewalNext) {
		t.Fatalf("expected next payment %v, got %v", renewalNext, recurring[0].NextPaymentDate)
	}
}

func TestFailedCategoryEmailRetriesOnNextFinalize(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	waterProject := projectdomain.WaterProject{ID: env.node.Generate(), Name: "Mali well", CountryCode: "ML"}
	if err := env.db.Create(&waterProject).Error; err != nil {
		t.Fatalf("seed water project: %v", err)
	}
	waterID := waterProject.ID
	order := env.seedOrder(t, []orderdomain.OrderItem{
		{WaterProjectID: &waterID, AmountPence: 30000, Frequency: orderdomain.FrequencyOneOff, DonationType: orderdomain.DonationTypeGeneral, CountryCode: "ML"},
	})

	env.provider.setFail("water_donation", true)
	params := FinalizeParams{OrderNumber: order.OrderNumber, PaymentRef: "pi_mail"}
	if err := env.svc.FinalizeOrderByNumber(ctx, params); err != nil {
		t.Fatalf("finalize with failing mail: %v", err)
	}

	var water donationdomain.WaterProjectDonation
	if err := env.db.Where("order_number = ?", order.OrderNumber).First(&water).Error; err != nil {
		t.Fatalf("load water donation: %v", err)
	}
	if water.EmailSent {
		t.Fatal("expected email_sent to stay false after failed send")
	}

	env.provider.setFail("water_donation", false)
	if err := env.svc.FinalizeOrderByNumber(ctx, params); err != nil {
		t.Fatalf("second finalize: %v", err)
	}

	if err := env.db.Where("order_number = ?", order.OrderNumber).First(&water).Error; err != nil {
		t.Fatalf("reload water donation: %v", err)
	}
	if !water.EmailSent {
		t.Fatal("expected email_sent after retry")
	}
	if n := env.provider.count("water_donation"); n != 1 {
		t.Fatalf("expected exactly 1 successful water email, got %d", n)
	}
}

func TestFundraiserNotifiedOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appeal := appealdomain.Appeal{ID: env.node.Generate(), Title: "Winter appeal", Slug: "winter-appeal", Status: appealdomain.AppealStatusLive}
	if err := env.db.Create(&appeal).Error; err != nil {
		t.Fatalf("seed appeal: %v", err)
	}
	fundraiser := appealdomain.Fundraiser{
		ID:         env.node.Generate(),
		AppealID:   appeal.ID,
		Slug:       "amirs-run",
		OwnerName:  "Amir",
		OwnerEmail: "amir@example.org",
		Title:      "Amir's run",
	}
	if err := env.db.Create(&fundraiser).Error; err != nil {
		t.Fatalf("seed fundraiser: %v", err)
	}

	appealID := appeal.ID
	fundraiserID := fundraiser.ID
	order := env.seedOrder(t, []orderdomain.OrderItem{
		{AppealID: &appealID, FundraiserID: &fundraiserID, AmountPence: 2500, Frequency: orderdomain.FrequencyOneOff, DonationType: orderdomain.DonationTypeGeneral},
	})

	params := FinalizeParams{OrderNumber: order.OrderNumber, PaymentRef: "pi_fund"}
	if err := env.svc.FinalizeOrderByNumber(ctx, params); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := env.svc.FinalizeOrderByNumber(ctx, params); err != nil {
		t.Fatalf("second finalize: %v", err)
	}

	if n := env.provider.count("fundraiser_new_donation"); n != 1 {
		t.Fatalf("expected exactly 1 fundraiser email, got %d", n)
	}
}
