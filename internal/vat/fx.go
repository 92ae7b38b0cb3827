package vat

import (
	"github.com/smallbiznis/vatledger/internal/lock"
	"github.com/smallbiznis/vatledger/internal/vat/export"
	"github.com/smallbiznis/vatledger/internal/vat/repository"
	"github.com/smallbiznis/vatledger/internal/vat/service"
	"go.uber.org/fx"
)

var Module = fx.Module("vat.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(provideGuard),
	fx.Provide(service.NewService),
	fx.Provide(export.NewExporter),
)

// provideGuard keeps a missing redis lock as a nil interface, not a typed nil.
func provideGuard(g *lock.RecalculationGuard) service.RecalculationGuard {
	if g == nil {
		return nil
	}
	return g
}
