package catalog

import (
	"go.uber.org/fx"

	"github.com/nordwell/ordercore/internal/repository"
)

// Module provides the catalog repository to Fx.
var Module = fx.Provide(
	fx.Annotate(NewRepository, fx.As(new(repository.Catalog))),
)
