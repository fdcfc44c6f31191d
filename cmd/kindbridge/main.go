package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/kindbridge/kindbridge/internal/appeal"
	"github.com/kindbridge/kindbridge/internal/checkout"
	"github.com/kindbridge/kindbridge/internal/config"
	"github.com/kindbridge/kindbridge/internal/donation"
	"github.com/kindbridge/kindbridge/internal/donor"
	"github.com/kindbridge/kindbridge/internal/finalizer"
	"github.com/kindbridge/kindbridge/internal/logger"
	"github.com/kindbridge/kindbridge/internal/migration"
	"github.com/kindbridge/kindbridge/internal/notify"
	obsmetrics "github.com/kindbridge/kindbridge/internal/observability/metrics"
	"github.com/kindbridge/kindbridge/internal/order"
	"github.com/kindbridge/kindbridge/internal/payment/stripeclient"
	"github.com/kindbridge/kindbridge/internal/payment/webhook"
	"github.com/kindbridge/kindbridge/internal/project"
	"github.com/kindbridge/kindbridge/internal/providers/email"
	"github.com/kindbridge/kindbridge/internal/reportpool"
	"github.com/kindbridge/kindbridge/internal/server"
	"github.com/kindbridge/kindbridge/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		obsmetrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		// Functional domains
		order.Module,
		donor.Module,
		appeal.Module,
		project.Module,
		donation.Module,
		reportpool.Module,
		email.Module,
		notify.Module,
		stripeclient.Module,
		finalizer.Module,
		webhook.Module,
		checkout.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
