package appeal

import (
	"github.com/kindbridge/kindbridge/internal/appeal/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("appeal",
	fx.Provide(repository.Provide),
)
