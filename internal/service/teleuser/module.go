package teleuser

import "go.uber.org/fx"

// Module provides the telegram user service to Fx.
var Module = fx.Provide(NewService)
