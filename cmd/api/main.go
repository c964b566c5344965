package main

import (
	"go.uber.org/fx"

	"github.com/nordwell/ordercore/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
