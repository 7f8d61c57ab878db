package domain

// ResultSet holds the materialized rows of one executed statement. Columns
// preserves the statement's column order so the formatter can render rows
// deterministically; Rows index values by column name. TotalCount is the
// scalar from the optional count statement and is distinct from len(Rows)
// when the main statement was capped or grouped; it is nil when no count
// statement ran.
type ResultSet struct {
	Columns    []string
	Rows       []map[string]any
	TotalCount *int64
}

// Empty reports whether the statement matched no rows.
func (r ResultSet) Empty() bool {
	return len(r.Rows) == 0
}

// Total returns TotalCount when present, else the row cardinality.
func (r ResultSet) Total() int64 {
	if r.TotalCount != nil {
		return *r.TotalCount
	}
	return int64(len(r.Rows))
}
