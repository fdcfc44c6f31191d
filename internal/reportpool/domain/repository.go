package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// ClaimNext assigns the oldest unassigned report for the project to the
	// subscription. Returns (nil, nil) when the pool is empty or the
	// subscription already holds a report for the project.
	ClaimNext(ctx context.Context, db *gorm.DB, projectID snowflake.ID, subscriptionID string, periodEnd time.Time) (*SponsorshipReport, error)
	Add(ctx context.Context, db *gorm.DB, report *SponsorshipReport) error
}
