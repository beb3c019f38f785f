package csv

import (
	"github.com/tidemark-io/tidemark/pkg/connector/registry"
)

func init() {
	if err := registry.RegisterDestination("csv", NewCSVDestination); err != nil {
		panic(err)
	}
}
