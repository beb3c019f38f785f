package hwm

import "strings"

// Agg selects which bound a discovery query computes
type Agg string

const (
	// AggMin discovers the smallest value of the expression
	AggMin Agg = "min"
	// AggMax discovers the largest value of the expression
	AggMax Agg = "max"
)

// Window bounds one read of a source. A nil bound omits the corresponding
// clause; a window with both bounds nil is a full scan.
type Window struct {
	// Expression is the column or SQL expression being bounded
	Expression string
	// Lower is the lower bound, nil when unbounded below
	Lower Value
	// LowerInclusive selects >= over > for the lower edge. The first span
	// of a first run is inclusive so the initial value itself is read;
	// resumed runs are exclusive to avoid re-reading the boundary row.
	LowerInclusive bool
	// Upper is the inclusive upper bound, nil when unbounded above
	Upper Value
}

// IsUnbounded reports whether the window has no bounds at all
func (w Window) IsUnbounded() bool {
	return w.Lower == nil && w.Upper == nil
}

// Predicate renders the window as a SQL filter expression. Values render
// through their Literal form, never raw interpolation, so date and
// timestamp bounds stay well-formed. An unbounded window renders empty.
func (w Window) Predicate() string {
	var clauses []string

	if w.Lower != nil {
		op := " > "
		if w.LowerInclusive {
			op = " >= "
		}
		clauses = append(clauses, w.Expression+op+w.Lower.Literal())
	}

	if w.Upper != nil {
		clauses = append(clauses, w.Expression+" <= "+w.Upper.Literal())
	}

	return strings.Join(clauses, " AND ")
}
