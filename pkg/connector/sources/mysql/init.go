package mysql

import (
	"github.com/tidemark-io/tidemark/pkg/connector/registry"
)

func init() {
	if err := registry.RegisterSource("mysql", NewMySQLSource); err != nil {
		panic(err)
	}
}
