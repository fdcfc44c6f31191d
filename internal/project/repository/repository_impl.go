package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kindbridge/kindbridge/internal/project/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindWaterProjectByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.WaterProject, error) {
	var project domain.WaterProject
	err := db.WithContext(ctx).Where("id = ?", id).First(&project).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

func (r *repo) FindSponsorshipProjectByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.SponsorshipProject, error) {
	var project domain.SponsorshipProject
	err := db.WithContext(ctx).Where("id = ?", id).First(&project).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

func (r *repo) EnsureWaterProjectStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string) error {
	return db.WithContext(ctx).
		Model(&domain.WaterProject{}).
		Where("id = ? AND (status IS NULL OR status = '')", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}

func (r *repo) EnsureSponsorshipProjectStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string) error {
	return db.WithContext(ctx).
		Model(&domain.SponsorshipProject{}).
		Where("id = ? AND (status IS NULL OR status = '')", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}
