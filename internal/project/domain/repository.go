package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindWaterProjectByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*WaterProject, error)
	FindSponsorshipProjectByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*SponsorshipProject, error)
	// EnsureWaterProjectStatus sets status only when it is currently empty.
	EnsureWaterProjectStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string) error
	EnsureSponsorshipProjectStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string) error
}
