package finalizer

import (
	"github.com/kindbridge/kindbridge/internal/finalizer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("finalizer",
	fx.Provide(service.NewService),
)
