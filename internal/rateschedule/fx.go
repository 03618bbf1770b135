package rateschedule

import (
	"github.com/smallbiznis/affilia/internal/rateschedule/repository"
	"github.com/smallbiznis/affilia/internal/rateschedule/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rateschedule.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
