package http

import (
	"go.uber.org/fx"

	catalogtransport "github.com/nordwell/ordercore/internal/transport/http/catalog"
	dashboardtransport "github.com/nordwell/ordercore/internal/transport/http/dashboard"
	ordertransport "github.com/nordwell/ordercore/internal/transport/http/order"
	teleusertransport "github.com/nordwell/ordercore/internal/transport/http/teleuser"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	ordertransport.Module,
	catalogtransport.Module,
	dashboardtransport.Module,
	teleusertransport.Module,
)
