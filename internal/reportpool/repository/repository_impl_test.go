package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kindbridge/kindbridge/internal/reportpool/domain"
	"github.com/kindbridge/kindbridge/pkg/db"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) (domain.Repository, *gorm.DB, *snowflake.Node) {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := conn.AutoMigrate(&domain.SponsorshipReport{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	return Provide(), conn, node
}

func seedReport(t *testing.T, conn *gorm.DB, node *snowflake.Node, projectID snowflake.ID, title string, createdAt time.Time) domain.SponsorshipReport {
	t.Helper()
	report := domain.SponsorshipReport{
		ID:                   node.Generate(),
		SponsorshipProjectID: projectID,
		Title:                title,
		CreatedAt:            createdAt,
	}
	if err := Provide().Add(context.Background(), conn, &report); err != nil {
		t.Fatalf("seed report: %v", err)
	}
	return report
}

func TestClaimNextFIFO(t *testing.T) {
	repo, conn, node := newTestRepo(t)
	ctx := context.Background()
	projectID := node.Generate()

	// Seeded newest first to prove ordering is by creation time, not insert
	// order.
	seedReport(t, conn, node, projectID, "March update", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	oldest := seedReport(t, conn, node, projectID, "January update", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	periodEnd := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	claimed, err := repo.ClaimNext(ctx, conn, projectID, "sub_1", periodEnd)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed == nil || claimed.ID != oldest.ID {
		t.Fatalf("expected oldest report claimed, got %+v", claimed)
	}
	if claimed.AssignedSubscriptionID != "sub_1" {
		t.Fatalf("expected assignment reference, got %q", claimed.AssignedSubscriptionID)
	}
}

func TestClaimNextRetryIsNoOp(t *testing.T) {
	repo, conn, node := newTestRepo(t)
	ctx := context.Background()
	projectID := node.Generate()

	seedReport(t, conn, node, projectID, "Only report", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	seedReport(t, conn, node, projectID, "Second report", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))

	periodEnd := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	if _, err := repo.ClaimNext(ctx, conn, projectID, "sub_1", periodEnd); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	// Retried webhook for the same subscription.
	second, err := repo.ClaimNext(ctx, conn, projectID, "sub_1", periodEnd)
	if err != nil {
		t.Fatalf("retry claim: %v", err)
	}
	if second != nil {
		t.Fatalf("expected retry to claim nothing, got %+v", second)
	}

	var count int64
	conn.Model(&domain.SponsorshipReport{}).
		Where("assigned_subscription_id = ?", "sub_1").Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly 1 assigned report, got %d", count)
	}
}

func TestClaimNextEmptyPool(t *testing.T) {
	repo, conn, node := newTestRepo(t)

	claimed, err := repo.ClaimNext(context.Background(), conn, node.Generate(), "sub_1", time.Now())
	if err != nil {
		t.Fatalf("claim on empty pool: %v", err)
	}
	if claimed != nil {
		t.Fatalf("expected nil on empty pool, got %+v", claimed)
	}
}

func TestClaimNextScopedToProject(t *testing.T) {
	repo, conn, node := newTestRepo(t)
	ctx := context.Background()

	projectA := node.Generate()
	projectB := node.Generate()
	seedReport(t, conn, node, projectA, "Project A report", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	claimed, err := repo.ClaimNext(ctx, conn, projectB, "sub_b", time.Now())
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed != nil {
		t.Fatalf("expected no cross-project claim, got %+v", claimed)
	}
}
