package hwm

// HWM is a high-water-mark: a monotonic progress marker for one
// (source, expression) pair. The qualified name derived from its identity
// fields is the persistence key in the HWM store.
type HWM struct {
	// Entity is the source table or path identity
	Entity string
	// Expression is the column or SQL expression the mark tracks
	Expression string
	// Instance is the stable identity of the physical source instance
	Instance string
	// Process is an optional namespace separating independent consumers
	// of the same source
	Process string
	// Value is the last committed watermark value
	Value Value
}

// QualifiedName derives the store key:
// expression#entity@instance, with #process appended when set.
func (h HWM) QualifiedName() string {
	name := h.Expression + "#" + h.Entity + "@" + h.Instance
	if h.Process != "" {
		name += "#" + h.Process
	}
	return name
}

// WithValue returns a copy of the mark carrying a new value
func (h HWM) WithValue(v Value) HWM {
	h.Value = v
	return h
}

// Equal reports whether two marks have the same identity and value
func (h HWM) Equal(other HWM) bool {
	if h.QualifiedName() != other.QualifiedName() {
		return false
	}
	if h.Value == nil || other.Value == nil {
		return h.Value == other.Value
	}
	if h.Value.Kind() != other.Value.Kind() {
		return false
	}
	c, err := h.Value.Compare(other.Value)
	return err == nil && c == 0
}
