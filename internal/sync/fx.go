package sync

import "go.uber.org/fx"

var Module = fx.Module("sync.orchestrator",
	fx.Provide(NewOrchestrator),
)
