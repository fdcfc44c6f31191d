package donation

import (
	"github.com/kindbridge/kindbridge/internal/donation/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("donation",
	fx.Provide(repository.Provide),
)
