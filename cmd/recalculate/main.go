// Command recalculate rebuilds tax records for every completed order and exits.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vatledger/internal/clock"
	"github.com/smallbiznis/vatledger/internal/config"
	"github.com/smallbiznis/vatledger/internal/lock"
	"github.com/smallbiznis/vatledger/internal/logger"
	"github.com/smallbiznis/vatledger/internal/migration"
	"github.com/smallbiznis/vatledger/internal/observability"
	"github.com/smallbiznis/vatledger/internal/order"
	"github.com/smallbiznis/vatledger/internal/vat"
	vatdomain "github.com/smallbiznis/vatledger/internal/vat/domain"
	"github.com/smallbiznis/vatledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	exitCode := 0

	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		lock.Module,
		migration.Module,
		order.Module,
		vat.Module,

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Invoke(func(lc fx.Lifecycle, sd fx.Shutdowner, svc vatdomain.Service, log *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						if err := recalculate(svc, log); err != nil {
							log.Error("recalculation failed", zap.Error(err))
							exitCode = 1
						}
						_ = sd.Shutdown(fx.ExitCode(exitCode))
					}()
					return nil
				},
			})
		}),
	)
	app.Run()
	os.Exit(exitCode)
}

func recalculate(svc vatdomain.Service, log *zap.Logger) error {
	result, err := svc.RecalculateAllTaxRecords(context.Background())
	if err != nil {
		return err
	}

	log.Info("recalculation finished",
		zap.String("run_id", result.RunID),
		zap.Int("processed", result.Processed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", len(result.Failures)),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.RecalculateSnowflakeNode)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.RecalculateSnowflakeNode, err)
	}
	return node, nil
}
