package retryqueue

import (
	"github.com/smallbiznis/affilia/internal/retryqueue/repository"
	"github.com/smallbiznis/affilia/internal/retryqueue/service"
	"go.uber.org/fx"
)

var Module = fx.Module("retryqueue.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
