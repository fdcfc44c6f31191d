package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("appeal_not_found")
	ErrNotLive  = errors.New("appeal_not_live")
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, appeal *Appeal) error
	// FindLiveByID returns (nil, nil) when no live appeal matches.
	FindLiveByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Appeal, error)
	FindFundraiserByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Fundraiser, error)
}
