// Package models provides the tabular result types moved between sources
// and destinations.
package models

// Record is one row of a tabular result
type Record struct {
	// Data maps column names to values
	Data map[string]interface{} `json:"data"`
}

// NewRecord creates an empty record
func NewRecord() *Record {
	return &Record{Data: make(map[string]interface{}, 16)}
}

// RecordSet is an ordered tabular result: the materialized output of one
// bounded read
type RecordSet struct {
	// Columns preserves the source column order
	Columns []string `json:"columns"`
	// Records holds the rows
	Records []*Record `json:"records"`
}

// NewRecordSet creates an empty record set with the given column order
func NewRecordSet(columns ...string) *RecordSet {
	return &RecordSet{Columns: columns}
}

// Append adds a row to the set
func (rs *RecordSet) Append(rec *Record) {
	rs.Records = append(rs.Records, rec)
}

// Len returns the number of rows
func (rs *RecordSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Records)
}
