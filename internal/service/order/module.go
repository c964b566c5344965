package order

import (
	"go.uber.org/fx"

	"github.com/nordwell/ordercore/internal/erp"
)

// Module provides the order service to Fx. The ERP client serves as the
// invoice exporter.
var Module = fx.Options(
	fx.Provide(NewService),
	fx.Provide(func(c *erp.Client) InvoiceExporter { return c }),
)
