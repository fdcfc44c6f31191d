package reportpool

import (
	"github.com/kindbridge/kindbridge/internal/reportpool/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("reportpool",
	fx.Provide(repository.Provide),
)
