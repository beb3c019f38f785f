package jsonl

import (
	"github.com/tidemark-io/tidemark/pkg/connector/registry"
)

func init() {
	if err := registry.RegisterDestination("jsonl", NewJSONLDestination); err != nil {
		panic(err)
	}
}
