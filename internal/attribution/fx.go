package attribution

import (
	"github.com/smallbiznis/affilia/internal/attribution/repository"
	"github.com/smallbiznis/affilia/internal/attribution/service"
	"go.uber.org/fx"
)

var Module = fx.Module("attribution.engine",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewMetrics),
	fx.Provide(service.New),
)
