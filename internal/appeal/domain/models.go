package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	AppealStatusDraft    = "DRAFT"
	AppealStatusLive     = "LIVE"
	AppealStatusArchived = "ARCHIVED"
)

// Appeal is a fundraising cause donations can target.
type Appeal struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Title       string       `gorm:"not null" json:"title"`
	Slug        string       `gorm:"not null;uniqueIndex" json:"slug"`
	Description string       `json:"description"`
	Status      string       `gorm:"not null;default:'DRAFT';index" json:"status"`
	TargetPence int64        `json:"target_pence"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Fundraiser is a supporter-created page attributing donations on an appeal
// to a specific campaign for a person.
type Fundraiser struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	AppealID   snowflake.ID `gorm:"not null;index" json:"appeal_id"`
	Slug       string       `gorm:"not null;uniqueIndex" json:"slug"`
	OwnerName  string       `gorm:"not null" json:"owner_name"`
	OwnerEmail string       `gorm:"not null" json:"owner_email"`
	Title      string       `gorm:"not null" json:"title"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
