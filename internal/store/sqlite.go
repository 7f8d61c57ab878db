// Package store executes validated read-only SQL against the SQLite data
// file and shapes the results for the answer prompt.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/askdb-go/internal/domain"
	"github.com/doeshing/askdb-go/internal/observability"
	"github.com/doeshing/askdb-go/internal/ports"
)

// Store runs ad-hoc SELECT statements against a SQLite file. The connection
// is opened per call and closed before returning, so the data file can be
// swapped on disk between requests without restarting the service.
type Store struct {
	path   string
	logger ports.Logger

	// openDB is swapped in tests to inject a mock connection.
	openDB func() (*sql.DB, error)
}

var _ ports.RowExecutor = (*Store)(nil)

// NewStore builds a store over the given SQLite file path.
func NewStore(path string, log ports.Logger) *Store {
	s := &Store{path: path, logger: log}
	s.openDB = func() (*sql.DB, error) {
		return sql.Open("sqlite", s.path)
	}
	return s
}

// Query executes one statement and materializes every row. Column order is
// preserved from the driver so formatted output stays deterministic.
func (s *Store) Query(ctx context.Context, statement string) (domain.ResultSet, error) {
	start := time.Now()
	db, err := s.openDB()
	if err != nil {
		return domain.ResultSet{}, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, statement)
	if err != nil {
		return domain.ResultSet{}, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return domain.ResultSet{}, fmt.Errorf("read columns: %w", err)
	}

	result := domain.ResultSet{Columns: columns}
	values := make([]any, len(columns))
	scanners := make([]any, len(columns))
	for i := range values {
		scanners[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanners...); err != nil {
			return domain.ResultSet{}, fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return domain.ResultSet{}, fmt.Errorf("iterate rows: %w", err)
	}

	observability.ObserveSQLExecution(time.Since(start))
	s.logger.Info("query executed", map[string]interface{}{"rows": len(result.Rows)})
	return result, nil
}

// QueryScalar executes a statement expected to return a single integer
// column, typically a COUNT. Missing rows yield zero without error.
func (s *Store) QueryScalar(ctx context.Context, statement, column string) (int64, error) {
	result, err := s.Query(ctx, statement)
	if err != nil {
		return 0, err
	}
	if len(result.Rows) == 0 {
		return 0, nil
	}
	value, ok := result.Rows[0][column]
	if !ok || value == nil {
		return 0, nil
	}
	switch v := value.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("scalar column %q has non-numeric type %T", column, value)
	}
}

// normalizeValue converts driver byte slices to strings so rows marshal and
// format cleanly.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
