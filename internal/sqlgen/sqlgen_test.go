package sqlgen

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/doeshing/askdb-go/internal/domain"
	"github.com/doeshing/askdb-go/internal/pkg/logger"
	"github.com/doeshing/askdb-go/internal/ports"
)

func TestValidateAcceptsPlainSelect(t *testing.T) {
	statements := []string{
		"SELECT id, value FROM your_table LIMIT 10",
		"  select name from your_table where year = 2025",
		"SELECT category, SUM(value) AS total FROM your_table GROUP BY category",
	}
	for _, stmt := range statements {
		if err := Validate(stmt); err != nil {
			t.Fatalf("Validate(%q) = %v, want nil", stmt, err)
		}
	}
}

func TestValidateRejectsDangerousStatements(t *testing.T) {
	cases := []struct {
		name string
		stmt string
	}{
		{"drop", "DROP TABLE your_table"},
		{"stacked delete", "SELECT * FROM your_table; DELETE FROM your_table"},
		{"trailing semicolon", "SELECT * FROM your_table;"},
		{"comment", "SELECT * FROM your_table -- hidden"},
		{"update", "UPDATE your_table SET value = 0"},
		{"lowercase insert", "insert into your_table values (1)"},
		{"non select", "PRAGMA table_info(your_table)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.stmt)
			if err == nil {
				t.Fatalf("Validate(%q) = nil, want error", tc.stmt)
			}
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error type = %T, want *domain.ValidationError", err)
			}
		})
	}
}

func TestGenerateParsesAndValidates(t *testing.T) {
	gateway := &stubCompleter{
		reply: "```json\n" + `{
			"main_sql": "SELECT category, SUM(value) AS total FROM your_table GROUP BY category LIMIT 20",
			"total_count_sql": "SELECT COUNT(DISTINCT category) AS total FROM your_table",
			"query_type": "aggregation"
		}` + "\n```",
	}
	g := NewGenerator(gateway, time.Second, logger.NewNop())

	got, err := g.Generate(context.Background(), "카테고리별 통계", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.QueryType != domain.QueryAggregation {
		t.Fatalf("QueryType = %q", got.QueryType)
	}
	if !strings.HasPrefix(got.MainStatement, "SELECT") {
		t.Fatalf("MainStatement = %q", got.MainStatement)
	}
	if got.CountStatement == "" {
		t.Fatal("CountStatement missing")
	}
}

func TestGenerateRejectsDangerousMainStatement(t *testing.T) {
	gateway := &stubCompleter{
		reply: `{"main_sql": "DROP TABLE your_table", "query_type": "lookup"}`,
	}
	g := NewGenerator(gateway, time.Second, logger.NewNop())

	_, err := g.Generate(context.Background(), "테이블 삭제해줘", nil)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *domain.ValidationError", err)
	}
}

func TestGenerateRejectsDangerousCountStatement(t *testing.T) {
	gateway := &stubCompleter{
		reply: `{"main_sql": "SELECT * FROM your_table", "total_count_sql": "SELECT COUNT(*) FROM your_table; DELETE FROM your_table", "query_type": "aggregation"}`,
	}
	g := NewGenerator(gateway, time.Second, logger.NewNop())

	if _, err := g.Generate(context.Background(), "q", nil); err == nil {
		t.Fatal("expected validation error on count statement")
	}
}

func TestGeneratePropagatesGatewayError(t *testing.T) {
	gateway := &stubCompleter{err: errors.New("endpoint down")}
	g := NewGenerator(gateway, time.Second, logger.NewNop())

	if _, err := g.Generate(context.Background(), "q", nil); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestGenerateDefaultsQueryType(t *testing.T) {
	gateway := &stubCompleter{
		reply: `{"main_sql": "SELECT * FROM your_table LIMIT 5"}`,
	}
	g := NewGenerator(gateway, time.Second, logger.NewNop())

	got, err := g.Generate(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.QueryType != domain.QueryAggregation {
		t.Fatalf("QueryType = %q, want aggregation default", got.QueryType)
	}
}

func TestEntityHintIncludesOnlyPopulatedSlots(t *testing.T) {
	hint := entityHint(domain.Entities{
		"category": "식품",
		"region":   nil,
		"year":     float64(2025),
	})

	if !strings.Contains(hint, "질문에 명시된 엔티티") {
		t.Fatalf("hint = %q", hint)
	}
	if !strings.Contains(hint, "식품") || !strings.Contains(hint, "2025") {
		t.Fatalf("hint = %q", hint)
	}
	if strings.Contains(hint, "region") {
		t.Fatalf("nil slot leaked into hint: %q", hint)
	}
}

func TestEntityHintEmptyForNoEntities(t *testing.T) {
	if hint := entityHint(nil); hint != "" {
		t.Fatalf("hint = %q, want empty", hint)
	}
	if hint := entityHint(domain.Entities{"region": nil}); hint != "" {
		t.Fatalf("hint = %q, want empty", hint)
	}
}

type stubCompleter struct {
	reply string
	err   error
}

func (s *stubCompleter) Complete(_ context.Context, _ ports.CompletionRequest) (string, error) {
	return s.reply, s.err
}
