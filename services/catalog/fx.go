package catalog

import (
	"creditshop/pkg/httpapi"

	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(
		NewService,
		httpapi.AsRoute(NewHandler),
	),
)
