package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kindbridge/kindbridge/internal/donor/domain"
	"github.com/kindbridge/kindbridge/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	genID *snowflake.Node
}

func Provide(genID *snowflake.Node) domain.Repository {
	return &repo{genID: genID}
}

func (r *repo) FindOrCreateByEmail(ctx context.Context, gdb *gorm.DB, email, firstName, lastName string) (*domain.Donor, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}

	now := time.Now().UTC()

	var donor domain.Donor
	err := gdb.WithContext(ctx).Where("email = ?", email).First(&donor).Error
	if err == gorm.ErrRecordNotFound {
		donor = domain.Donor{
			ID:        r.genID.Generate(),
			Email:     email,
			FirstName: strings.TrimSpace(firstName),
			LastName:  strings.TrimSpace(lastName),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if createErr := gdb.WithContext(ctx).Create(&donor).Error; createErr != nil {
			// A concurrent finalization for the same donor may have won
			// the insert; fall back to the existing row.
			if !db.IsDuplicateKeyErr(createErr) {
				return nil, createErr
			}
			if err := gdb.WithContext(ctx).Where("email = ?", email).First(&donor).Error; err != nil {
				return nil, err
			}
		} else {
			return &donor, nil
		}
	} else if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if name := strings.TrimSpace(firstName); name != "" && name != donor.FirstName {
		updates["first_name"] = name
		donor.FirstName = name
	}
	if name := strings.TrimSpace(lastName); name != "" && name != donor.LastName {
		updates["last_name"] = name
		donor.LastName = name
	}
	if len(updates) > 0 {
		updates["updated_at"] = now
		if err := gdb.WithContext(ctx).Model(&domain.Donor{}).Where("id = ?", donor.ID).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &donor, nil
}
