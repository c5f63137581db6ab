package main

import (
	"github.com/NanaWhan/RamadanApi/internal/bus"
	"github.com/NanaWhan/RamadanApi/internal/clock"
	"github.com/NanaWhan/RamadanApi/internal/config"
	"github.com/NanaWhan/RamadanApi/internal/donation"
	"github.com/NanaWhan/RamadanApi/internal/donation/reconcile"
	"github.com/NanaWhan/RamadanApi/internal/event"
	"github.com/NanaWhan/RamadanApi/internal/gateway/paystack"
	"github.com/NanaWhan/RamadanApi/internal/logger"
	"github.com/NanaWhan/RamadanApi/internal/migration"
	"github.com/NanaWhan/RamadanApi/internal/newsletter"
	"github.com/NanaWhan/RamadanApi/internal/notify"
	"github.com/NanaWhan/RamadanApi/internal/partner"
	"github.com/NanaWhan/RamadanApi/internal/seed"
	"github.com/NanaWhan/RamadanApi/internal/server"
	"github.com/NanaWhan/RamadanApi/internal/sms/mnotify"
	"github.com/NanaWhan/RamadanApi/internal/stats"
	"github.com/NanaWhan/RamadanApi/internal/volunteer"
	"github.com/NanaWhan/RamadanApi/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		fx.Invoke(func(conn *gorm.DB, node *snowflake.Node, cfg config.Config) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			if err := seed.EnsureStatistics(conn); err != nil {
				return err
			}
			return seed.EnsureAdmin(conn, node, cfg)
		}),

		bus.Module,
		clock.Module,
		paystack.Module,
		mnotify.Module,

		donation.Module,
		stats.Module,
		notify.Module,
		volunteer.Module,
		partner.Module,
		event.Module,
		newsletter.Module,

		reconcile.Module,
		server.Module,
	)
	app.Run()
}
