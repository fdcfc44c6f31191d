package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	appealdomain "github.com/kindbridge/kindbridge/internal/appeal/domain"
	appealrepository "github.com/kindbridge/kindbridge/internal/appeal/repository"
	projectdomain "github.com/kindbridge/kindbridge/internal/project/domain"
	reportpooldomain "github.com/kindbridge/kindbridge/internal/reportpool/domain"
	reportpoolrepository "github.com/kindbridge/kindbridge/internal/reportpool/repository"
	"gorm.io/gorm"
)

const (
	devAppealTitle      = "Winter Emergency Appeal"
	devFundraiserSlug   = "team-kindbridge-winter"
	devWaterProjectName = "Village Well PK-001"
	devSponsorshipName  = "Orphan Sponsorship A-12"
)

// EnsureDevFixtures seeds a small working data set for local development:
// one live appeal with a fundraiser page, a water project, and a sponsorship
// project with two pooled reports. Safe to run on every startup.
func EnsureDevFixtures(db *gorm.DB, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	appeals := appealrepository.Provide()
	reports := reportpoolrepository.Provide()

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appeal, created, err := ensureAppealTx(ctx, tx, appeals, node)
		if err != nil {
			return err
		}
		if !created {
			return nil
		}
		if err := ensureFundraiserTx(ctx, tx, node, appeal.ID); err != nil {
			return err
		}
		return ensureProjectsTx(ctx, tx, reports, node)
	})
}

func ensureAppealTx(ctx context.Context, tx *gorm.DB, appeals appealdomain.Repository, node *snowflake.Node) (*appealdomain.Appeal, bool, error) {
	var existing appealdomain.Appeal
	err := tx.WithContext(ctx).Where("title = ?", devAppealTitle).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	appeal := appealdomain.Appeal{
		ID:          node.Generate(),
		Title:       devAppealTitle,
		Description: "Blankets, fuel and hot meals for families through the cold months.",
		Status:      appealdomain.AppealStatusLive,
		TargetPence: 1_000_000,
	}
	if err := appeals.Create(ctx, tx, &appeal); err != nil {
		return nil, false, err
	}
	return &appeal, true, nil
}

func ensureFundraiserTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, appealID snowflake.ID) error {
	now := time.Now().UTC()
	fundraiser := appealdomain.Fundraiser{
		ID:         node.Generate(),
		AppealID:   appealID,
		Slug:       devFundraiserSlug,
		OwnerName:  "Sana Iqbal",
		OwnerEmail: "sana@example.org",
		Title:      "Team KindBridge Winter Run",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return tx.WithContext(ctx).Create(&fundraiser).Error
}

func ensureProjectsTx(ctx context.Context, tx *gorm.DB, reports reportpooldomain.Repository, node *snowflake.Node) error {
	now := time.Now().UTC()

	water := projectdomain.WaterProject{
		ID:          node.Generate(),
		Name:        devWaterProjectName,
		CountryCode: "PK",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(&water).Error; err != nil {
		return err
	}

	sponsorship := projectdomain.SponsorshipProject{
		ID:                node.Generate(),
		Name:              devSponsorshipName,
		MonthlyPricePence: 3_500,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := tx.WithContext(ctx).Create(&sponsorship).Error; err != nil {
		return err
	}

	for i, title := range []string{"Welcome profile", "First term update"} {
		report := reportpooldomain.SponsorshipReport{
			ID:                   node.Generate(),
			SponsorshipProjectID: sponsorship.ID,
			Title:                title,
			CreatedAt:            now.Add(time.Duration(i) * time.Second),
		}
		if err := reports.Add(ctx, tx, &report); err != nil {
			return err
		}
	}
	return nil
}
