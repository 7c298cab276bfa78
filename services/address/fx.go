package address

import (
	"creditshop/pkg/httpapi"

	"go.uber.org/fx"
)

var Module = fx.Module("address.service",
	fx.Provide(
		NewService,
		httpapi.AsRoute(NewHandler),
	),
)
