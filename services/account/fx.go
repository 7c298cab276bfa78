package account

import (
	"creditshop/pkg/httpapi"

	"go.uber.org/fx"
)

var Module = fx.Module("account.service",
	fx.Provide(
		NewService,
		httpapi.AsRoute(NewHandler),
	),
)
