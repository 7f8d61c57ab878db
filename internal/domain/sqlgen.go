package domain

import "fmt"

// QueryType classifies a generated statement by the shape of its result.
type QueryType string

const (
	QueryAggregation QueryType = "aggregation"
	QueryCount       QueryType = "count"
	QueryLookup      QueryType = "lookup"
)

// ParseQueryType maps free-form model output onto the closed set, defaulting
// to aggregation.
func ParseQueryType(value string) QueryType {
	switch QueryType(value) {
	case QueryCount, QueryLookup:
		return QueryType(value)
	default:
		return QueryAggregation
	}
}

// GeneratedSQL is the validated output of the SQL generator. MainStatement is
// always SELECT-only; CountStatement is empty unless the main statement is
// grouped or capped and a separate total is needed.
type GeneratedSQL struct {
	MainStatement  string    `json:"main_sql"`
	CountStatement string    `json:"total_count_sql,omitempty"`
	QueryType      QueryType `json:"query_type"`
}

// ValidationError reports a generated statement that failed the safety
// validator. It always propagates to the caller; executing an unvalidated
// statement is never an option.
type ValidationError struct {
	Statement string
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("sql validation: %s", e.Reason)
}
