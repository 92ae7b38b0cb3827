package main

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vatledger/internal/clock"
	"github.com/smallbiznis/vatledger/internal/config"
	"github.com/smallbiznis/vatledger/internal/lock"
	"github.com/smallbiznis/vatledger/internal/logger"
	"github.com/smallbiznis/vatledger/internal/migration"
	"github.com/smallbiznis/vatledger/internal/observability"
	"github.com/smallbiznis/vatledger/internal/order"
	"github.com/smallbiznis/vatledger/internal/server"
	"github.com/smallbiznis/vatledger/internal/vat"
	"github.com/smallbiznis/vatledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		lock.Module,
		migration.Module,

		// Functional Domains
		order.Module,
		vat.Module,

		server.Module,

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.SnowflakeNode, err)
	}
	return node, nil
}
