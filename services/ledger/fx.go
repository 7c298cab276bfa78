package ledger

import (
	"creditshop/pkg/httpapi"
	"creditshop/pkg/task"

	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(
		NewService,
		NewReconciler,
		httpapi.AsRoute(NewHandler),
	),
)

// Worker registers the ledger task handlers on the asynq server.
var Worker = fx.Module("ledger.worker",
	fx.Provide(
		NewService,
		NewReconciler,
		task.AsHandler(NewReconcileHandler),
	),
)
