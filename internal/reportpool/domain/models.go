package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SponsorshipReport is a pre-authored completion report sitting in a pool.
// New sponsorships claim reports strictly FIFO by creation time; the claim
// reference (subscription + billing period) keeps a retried first invoice
// from taking a second report.
type SponsorshipReport struct {
	ID                   snowflake.ID `gorm:"primaryKey" json:"id"`
	SponsorshipProjectID snowflake.ID `gorm:"not null;index" json:"sponsorship_project_id"`
	Title                string       `gorm:"not null" json:"title"`
	Body                 string       `json:"body"`

	AssignedSubscriptionID string     `gorm:"index" json:"assigned_subscription_id,omitempty"`
	AssignedPeriodEnd      *time.Time `json:"assigned_period_end,omitempty"`
	AssignedAt             *time.Time `json:"assigned_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
