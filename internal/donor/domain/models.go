package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Donor is the deduplicated donor identity. Email is stored lowercase and is
// the unique key; name fields are refreshed from the latest completed order.
type Donor struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Email     string       `gorm:"not null;uniqueIndex" json:"email"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
