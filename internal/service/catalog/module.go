package catalog

import (
	"go.uber.org/fx"

	"github.com/nordwell/ordercore/internal/erp"
)

// Module provides the catalog service to Fx. The ERP client doubles as
// the sync source.
var Module = fx.Options(
	fx.Provide(NewService),
	fx.Provide(func(c *erp.Client) Source { return c }),
)
