package spapi

import "go.uber.org/fx"

var Module = fx.Module("spapi.client",
	fx.Provide(NewFactory),
)
