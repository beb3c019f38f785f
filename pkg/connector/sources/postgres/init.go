package postgres

import (
	"github.com/tidemark-io/tidemark/pkg/connector/registry"
)

func init() {
	if err := registry.RegisterSource("postgres", NewPostgresSource); err != nil {
		panic(err)
	}
}
