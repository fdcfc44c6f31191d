package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// FindOrCreateByEmail looks the donor up case-insensitively, creating
	// the row when absent and refreshing name fields when provided.
	FindOrCreateByEmail(ctx context.Context, db *gorm.DB, email, firstName, lastName string) (*Donor, error)
}
