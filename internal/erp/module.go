package erp

import "go.uber.org/fx"

// Module provides the ERP client.
var Module = fx.Provide(NewClient)
