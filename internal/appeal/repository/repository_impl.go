package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/kindbridge/kindbridge/internal/appeal/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, appeal *domain.Appeal) error {
	if appeal.Slug == "" {
		appeal.Slug = slug.Make(appeal.Title)
	}
	now := time.Now().UTC()
	if appeal.CreatedAt.IsZero() {
		appeal.CreatedAt = now
	}
	appeal.UpdatedAt = now
	return db.WithContext(ctx).Create(appeal).Error
}

func (r *repo) FindLiveByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Appeal, error) {
	var appeal domain.Appeal
	err := db.WithContext(ctx).
		Where("id = ? AND status = ?", id, domain.AppealStatusLive).
		First(&appeal).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &appeal, nil
}

func (r *repo) FindFundraiserByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Fundraiser, error) {
	var fundraiser domain.Fundraiser
	err := db.WithContext(ctx).Where("id = ?", id).First(&fundraiser).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &fundraiser, nil
}
