package hwm

import (
	"strings"
	"sync"

	"github.com/tidemark-io/tidemark/pkg/errors"
)

// Registry maps native column type names to high-water-mark kinds.
// New bindings can be added at runtime by downstream integrations without
// touching the existing ones.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
}

// fractional native types get a targeted error instead of the generic
// "unknown type" one: tracking them is never supported
var fractionalTypes = map[string]struct{}{
	"float":            {},
	"float4":           {},
	"float8":           {},
	"real":             {},
	"double":           {},
	"double precision": {},
	"decimal":          {},
	"numeric":          {},
}

// NewRegistry creates a registry seeded with the built-in bindings
func NewRegistry() *Registry {
	return &Registry{
		kinds: map[string]Kind{
			// integer families across engines
			"tinyint":   KindInt,
			"smallint":  KindInt,
			"mediumint": KindInt,
			"int":       KindInt,
			"int2":      KindInt,
			"int4":      KindInt,
			"int8":      KindInt,
			"integer":   KindInt,
			"bigint":    KindInt,
			"serial":    KindInt,
			"bigserial": KindInt,
			"byte":      KindInt,
			"short":     KindInt,
			"long":      KindInt,

			"date": KindDate,

			"datetime":                    KindTimestamp,
			"timestamp":                   KindTimestamp,
			"timestamptz":                 KindTimestamp,
			"timestamp without time zone": KindTimestamp,
			"timestamp with time zone":    KindTimestamp,
		},
	}
}

// Register adds a new type name binding. Rebinding an existing name is an
// error: existing bindings stay closed for modification.
func (r *Registry) Register(typeName string, kind Kind) error {
	name := normalizeTypeName(typeName)
	if name == "" {
		return errors.New(errors.ErrorTypeConfig, "empty HWM type name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.kinds[name]; ok {
		return errors.Newf(errors.ErrorTypeConfig,
			"HWM type %q already registered as %s", typeName, existing)
	}

	r.kinds[name] = kind
	return nil
}

// Resolve maps a native column type name to a high-water-mark kind.
// Unknown names fail with a recoverable not-found error; fractional types
// fail with a validation error naming the restriction.
func (r *Registry) Resolve(typeName string) (Kind, error) {
	name := normalizeTypeName(typeName)

	if _, ok := fractionalTypes[name]; ok {
		return "", errors.Newf(errors.ErrorTypeValidation,
			"high-water-mark over fractional column type %q is not supported", typeName)
	}

	r.mu.RLock()
	kind, ok := r.kinds[name]
	r.mu.RUnlock()

	if !ok {
		return "", errors.Newf(errors.ErrorTypeNotFound, "unknown HWM type %q", typeName)
	}
	return kind, nil
}

// normalizeTypeName lowercases the name and strips a precision suffix,
// so "DECIMAL(10,2)" and "decimal" resolve the same way
func normalizeTypeName(typeName string) string {
	name := strings.ToLower(strings.TrimSpace(typeName))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	return name
}

// Global registry instance
var globalRegistry = NewRegistry()

// Register adds a type name binding to the global registry
func Register(typeName string, kind Kind) error {
	return globalRegistry.Register(typeName, kind)
}

// Resolve maps a native column type name using the global registry
func Resolve(typeName string) (Kind, error) {
	return globalRegistry.Resolve(typeName)
}

// DefaultRegistry returns the global registry instance
func DefaultRegistry() *Registry {
	return globalRegistry
}
