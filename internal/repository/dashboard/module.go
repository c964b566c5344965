package dashboard

import (
	"go.uber.org/fx"

	"github.com/nordwell/ordercore/internal/repository"
)

// Module provides the dashboard repository.
var Module = fx.Provide(
	fx.Annotate(NewRepository, fx.As(new(repository.Dashboard))),
)
