package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Project status lifecycle shared by water and sponsorship projects. A funded
// project waits for manual admin review before disbursement.
const (
	ProjectStatusWaitingToReview = "WAITING_TO_REVIEW"
	ProjectStatusInProgress      = "IN_PROGRESS"
	ProjectStatusCompleted       = "COMPLETED"
)

// WaterProject is a well/pump build priced per country.
type WaterProject struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"not null" json:"name"`
	CountryCode string       `gorm:"not null;index" json:"country_code"`
	// Status is empty until the first donation lands; the finalizer
	// backfills WAITING_TO_REVIEW.
	Status    string    `gorm:"index" json:"status"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// SponsorshipProject is an orphan/family sponsorship with a monthly price.
type SponsorshipProject struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	Name              string       `gorm:"not null" json:"name"`
	MonthlyPricePence int64        `gorm:"not null" json:"monthly_price_pence"`
	Status            string       `gorm:"index" json:"status"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
