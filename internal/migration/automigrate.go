package migration

import (
	appealdomain "github.com/kindbridge/kindbridge/internal/appeal/domain"
	donationdomain "github.com/kindbridge/kindbridge/internal/donation/domain"
	donordomain "github.com/kindbridge/kindbridge/internal/donor/domain"
	orderdomain "github.com/kindbridge/kindbridge/internal/order/domain"
	projectdomain "github.com/kindbridge/kindbridge/internal/project/domain"
	reportpooldomain "github.com/kindbridge/kindbridge/internal/reportpool/domain"
	"gorm.io/gorm"
)

// AutoMigrate creates the schema from the model structs. Used for sqlite and
// mysql where the versioned SQL files do not apply; Postgres deployments use
// RunMigrations instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&donordomain.Donor{},
		&appealdomain.Appeal{},
		&appealdomain.Fundraiser{},
		&projectdomain.WaterProject{},
		&projectdomain.SponsorshipProject{},
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
		&donationdomain.Donation{},
		&donationdomain.WaterProjectDonation{},
		&donationdomain.SponsorshipDonation{},
		&donationdomain.RecurringDonation{},
		&reportpooldomain.SponsorshipReport{},
	)
}
