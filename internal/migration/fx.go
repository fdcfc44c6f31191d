package migration

import (
	"github.com/bwmarrin/snowflake"
	"github.com/kindbridge/kindbridge/internal/config"
	"github.com/kindbridge/kindbridge/internal/seed"
	"github.com/kindbridge/kindbridge/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg db.Config, appCfg config.Config, node *snowflake.Node) error {
		if cfg.Type != "postgres" {
			if err := AutoMigrate(conn); err != nil {
				return err
			}
		} else {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		}

		if appCfg.SeedDevData {
			return seed.EnsureDevFixtures(conn, node)
		}
		return nil
	}),
)
