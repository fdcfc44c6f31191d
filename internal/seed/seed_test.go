package seed

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	appealdomain "github.com/kindbridge/kindbridge/internal/appeal/domain"
	projectdomain "github.com/kindbridge/kindbridge/internal/project/domain"
	reportpooldomain "github.com/kindbridge/kindbridge/internal/reportpool/domain"
	"github.com/kindbridge/kindbridge/pkg/db"
	"gorm.io/gorm"
)

func newSeedTestDB(t *testing.T) (*gorm.DB, *snowflake.Node) {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	err = conn.AutoMigrate(
		&appealdomain.Appeal{},
		&appealdomain.Fundraiser{},
		&projectdomain.WaterProject{},
		&projectdomain.SponsorshipProject{},
		&reportpooldomain.SponsorshipReport{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	return conn, node
}

func TestEnsureDevFixtures(t *testing.T) {
	conn, node := newSeedTestDB(t)

	if err := EnsureDevFixtures(conn, node); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var appeal appealdomain.Appeal
	if err := conn.Where("title = ?", devAppealTitle).First(&appeal).Error; err != nil {
		t.Fatalf("expected seeded appeal: %v", err)
	}
	if appeal.Status != appealdomain.AppealStatusLive {
		t.Fatalf("expected live appeal, got %q", appeal.Status)
	}
	if appeal.Slug != "winter-emergency-appeal" {
		t.Fatalf("expected slug derived from title, got %q", appeal.Slug)
	}

	var fundraisers int64
	conn.Model(&appealdomain.Fundraiser{}).Where("appeal_id = ?", appeal.ID).Count(&fundraisers)
	if fundraisers != 1 {
		t.Fatalf("expected 1 fundraiser, got %d", fundraisers)
	}

	var reports int64
	conn.Model(&reportpooldomain.SponsorshipReport{}).Count(&reports)
	if reports != 2 {
		t.Fatalf("expected 2 pooled reports, got %d", reports)
	}
}

func TestEnsureDevFixturesIsIdempotent(t *testing.T) {
	conn, node := newSeedTestDB(t)

	for i := 0; i < 2; i++ {
		if err := EnsureDevFixtures(conn, node); err != nil {
			t.Fatalf("seed run %d: %v", i+1, err)
		}
	}

	var appeals, reports int64
	conn.Model(&appealdomain.Appeal{}).Count(&appeals)
	conn.Model(&reportpooldomain.SponsorshipReport{}).Count(&reports)
	if appeals != 1 {
		t.Fatalf("expected 1 appeal after reruns, got %d", appeals)
	}
	if reports != 2 {
		t.Fatalf("expected 2 reports after reruns, got %d", reports)
	}
}
