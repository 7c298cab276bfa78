package order

import (
	"creditshop/pkg/httpapi"
	"creditshop/pkg/task"

	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(
		NewService,
		httpapi.AsRoute(NewHandler),
	),
)

// Worker registers the order task handlers on the asynq server.
var Worker = fx.Module("order.worker",
	fx.Provide(
		NewService,
		NewCreatedHandler,
		task.AsHandler(NewCreatedTaskHandler),
	),
)
