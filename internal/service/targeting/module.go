package targeting

import "go.uber.org/fx"

var Module = fx.Module("targeting",
	fx.Provide(New),
)
