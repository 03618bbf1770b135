package click

import (
	"github.com/smallbiznis/affilia/internal/click/repository"
	"github.com/smallbiznis/affilia/internal/click/service"
	"go.uber.org/fx"
)

var Module = fx.Module("click.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
