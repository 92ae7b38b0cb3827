package order

import (
	"github.com/smallbiznis/vatledger/internal/order/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("order.reader",
	fx.Provide(repository.NewRepository),
)
