package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/doeshing/askdb-go/internal/domain"
	"github.com/doeshing/askdb-go/internal/pkg/logger"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	s := NewStore("unused.db", logger.NewNop())
	s.openDB = func() (*sql.DB, error) { return db, nil }
	return s, mock
}

func TestQueryPreservesColumnOrder(t *testing.T) {
	s, mock := newMockStore(t)
	stmt := "SELECT category, SUM(value) AS total FROM your_table GROUP BY category"
	mock.ExpectQuery(stmt).WillReturnRows(
		sqlmock.NewRows([]string{"category", "total"}).
			AddRow("식품", int64(120)).
			AddRow("의류", int64(80)),
	)

	got, err := s.Query(context.Background(), stmt)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got.Columns) != 2 || got.Columns[0] != "category" || got.Columns[1] != "total" {
		t.Fatalf("Columns = %v", got.Columns)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("Rows = %d", len(got.Rows))
	}
	if got.Rows[0]["category"] != "식품" || got.Rows[0]["total"] != int64(120) {
		t.Fatalf("Rows[0] = %v", got.Rows[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestQueryNormalizesByteSlices(t *testing.T) {
	s, mock := newMockStore(t)
	stmt := "SELECT name FROM your_table LIMIT 1"
	mock.ExpectQuery(stmt).WillReturnRows(
		sqlmock.NewRows([]string{"name"}).AddRow([]byte("제품A")),
	)

	got, err := s.Query(context.Background(), stmt)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got.Rows[0]["name"] != "제품A" {
		t.Fatalf("name = %v (%T)", got.Rows[0]["name"], got.Rows[0]["name"])
	}
}

func TestQueryPropagatesExecutionError(t *testing.T) {
	s, mock := newMockStore(t)
	stmt := "SELECT nope FROM your_table"
	mock.ExpectQuery(stmt).WillReturnError(sql.ErrConnDone)

	if _, err := s.Query(context.Background(), stmt); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestQueryScalarReadsNamedColumn(t *testing.T) {
	s, mock := newMockStore(t)
	stmt := "SELECT COUNT(*) AS total FROM your_table"
	mock.ExpectQuery(stmt).WillReturnRows(
		sqlmock.NewRows([]string{"total"}).AddRow(int64(42)),
	)

	got, err := s.QueryScalar(context.Background(), stmt, "total")
	if err != nil {
		t.Fatalf("QueryScalar() error = %v", err)
	}
	if got != 42 {
		t.Fatalf("QueryScalar() = %d, want 42", got)
	}
}

func TestQueryScalarZeroWhenNoRows(t *testing.T) {
	s, mock := newMockStore(t)
	stmt := "SELECT COUNT(*) AS total FROM your_table WHERE year = 1900"
	mock.ExpectQuery(stmt).WillReturnRows(sqlmock.NewRows([]string{"total"}))

	got, err := s.QueryScalar(context.Background(), stmt, "total")
	if err != nil {
		t.Fatalf("QueryScalar() error = %v", err)
	}
	if got != 0 {
		t.Fatalf("QueryScalar() = %d, want 0", got)
	}
}

func TestFormatForLLMEmptyResult(t *testing.T) {
	got := FormatForLLM(domain.ResultSet{}, domain.QueryAggregation)
	if got != "검색 결과가 없습니다." {
		t.Fatalf("FormatForLLM() = %q", got)
	}
}

func TestFormatForLLMAggregation(t *testing.T) {
	total := int64(57)
	result := domain.ResultSet{
		Columns: []string{"category", "total", "id"},
		Rows: []map[string]any{
			{"category": "식품", "total": int64(120), "id": int64(1)},
			{"category": "의류", "total": int64(80), "id": int64(2)},
		},
		TotalCount: &total,
	}

	got := FormatForLLM(result, domain.QueryAggregation)

	if !strings.Contains(got, "=== SQL 검색 결과 ===") {
		t.Fatalf("missing header: %q", got)
	}
	if !strings.Contains(got, "집계 결과 (총 57건 중 상위 2건):") {
		t.Fatalf("missing capped summary: %q", got)
	}
	if !strings.Contains(got, "[1] category: 식품, total: 120") {
		t.Fatalf("missing row line: %q", got)
	}
	if strings.Contains(got, "id:") {
		t.Fatalf("id column leaked: %q", got)
	}
}

func TestFormatForLLMAggregationUncapped(t *testing.T) {
	result := domain.ResultSet{
		Columns: []string{"category", "total"},
		Rows:    []map[string]any{{"category": "식품", "total": int64(5)}},
	}
	got := FormatForLLM(result, domain.QueryAggregation)
	if !strings.Contains(got, "집계 결과 (총 1건):") {
		t.Fatalf("summary = %q", got)
	}
}

func TestFormatForLLMCount(t *testing.T) {
	result := domain.ResultSet{
		Columns: []string{"total"},
		Rows:    []map[string]any{{"total": int64(42)}},
	}
	got := FormatForLLM(result, domain.QueryCount)
	if !strings.Contains(got, "총 건수: 42") {
		t.Fatalf("FormatForLLM() = %q", got)
	}
}

func TestFormatForLLMLookupTruncatesLongValues(t *testing.T) {
	long := strings.Repeat("가", 200)
	result := domain.ResultSet{
		Columns: []string{"name", "id"},
		Rows:    []map[string]any{{"name": long, "id": int64(9)}},
	}

	got := FormatForLLM(result, domain.QueryLookup)

	if !strings.Contains(got, "조회 결과 (총 1건):") {
		t.Fatalf("summary missing: %q", got)
	}
	want := strings.Repeat("가", 150) + "..."
	if !strings.Contains(got, want) {
		t.Fatalf("truncated value missing: %q", got)
	}
	if strings.Contains(got, strings.Repeat("가", 151)) {
		t.Fatalf("value not truncated: %q", got)
	}
	if strings.Contains(got, "id:") {
		t.Fatalf("id column leaked: %q", got)
	}
}

func TestFormatForLLMSkipsNilValues(t *testing.T) {
	result := domain.ResultSet{
		Columns: []string{"category", "region"},
		Rows:    []map[string]any{{"category": "식품", "region": nil}},
	}
	got := FormatForLLM(result, domain.QueryLookup)
	if strings.Contains(got, "region") {
		t.Fatalf("nil column leaked: %q", got)
	}
}
