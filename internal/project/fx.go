package project

import (
	"github.com/kindbridge/kindbridge/internal/project/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("project",
	fx.Provide(repository.Provide),
)
