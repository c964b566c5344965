package app

import (
	"go.uber.org/fx"

	"github.com/nordwell/ordercore/internal/cache"
	"github.com/nordwell/ordercore/internal/config"
	"github.com/nordwell/ordercore/internal/database"
	"github.com/nordwell/ordercore/internal/erp"
	"github.com/nordwell/ordercore/internal/logger"
	"github.com/nordwell/ordercore/internal/messaging"
	"github.com/nordwell/ordercore/internal/observability"
	"github.com/nordwell/ordercore/internal/ordernum"
	repositorycatalog "github.com/nordwell/ordercore/internal/repository/catalog"
	repositorycounter "github.com/nordwell/ordercore/internal/repository/counter"
	repositorydashboard "github.com/nordwell/ordercore/internal/repository/dashboard"
	repositoryorder "github.com/nordwell/ordercore/internal/repository/order"
	repositoryteleuser "github.com/nordwell/ordercore/internal/repository/teleuser"
	grpcserver "github.com/nordwell/ordercore/internal/server/grpc"
	httpserver "github.com/nordwell/ordercore/internal/server/http"
	servicecatalog "github.com/nordwell/ordercore/internal/service/catalog"
	servicedashboard "github.com/nordwell/ordercore/internal/service/dashboard"
	serviceorder "github.com/nordwell/ordercore/internal/service/order"
	serviceteleuser "github.com/nordwell/ordercore/internal/service/teleuser"
	"github.com/nordwell/ordercore/internal/tracking"
	transporthttp "github.com/nordwell/ordercore/internal/transport/http"
	"github.com/nordwell/ordercore/internal/worker"
	workerorder "github.com/nordwell/ordercore/internal/worker/order"
	"github.com/nordwell/ordercore/pkg/clock"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	clock.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	erp.Module,
	ordernum.Module,
	tracking.Module,
	repositoryorder.Module,
	repositorycatalog.Module,
	repositorycounter.Module,
	repositorydashboard.Module,
	repositoryteleuser.Module,
	serviceorder.Module,
	servicecatalog.Module,
	servicedashboard.Module,
	serviceteleuser.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// GRPC wires the gRPC server on top of the core modules.
var GRPC = fx.Options(
	Core,
	grpcserver.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP, gRPC, and workers).
var Module = fx.Options(
	HTTP,
	grpcserver.Module,
	worker.Module,
	workerorder.Module,
)
