package main

import (
	"os"

	"github.com/nordwell/ordercore/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
