package affiliate

import (
	"github.com/smallbiznis/affilia/internal/affiliate/repository"
	"github.com/smallbiznis/affilia/internal/affiliate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("affiliate.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
