package store

import (
	"fmt"
	"strings"

	"github.com/doeshing/askdb-go/internal/domain"
)

// emptyResultNotice is the sentinel handed to the answer prompt when a query
// matched nothing. The prompt instructs the model to say so rather than
// invent data.
const emptyResultNotice = "검색 결과가 없습니다."

// longValueLimit caps string cell length in lookup output. Long free-text
// columns would otherwise crowd real data out of the model context.
const longValueLimit = 150

// aggregationExcluded and lookupExcluded name the columns dropped from
// formatted rows. Aggregation output also drops the raw text columns because
// grouped rows never carry meaningful per-record text.
var (
	aggregationExcluded = map[string]bool{"text": true, "keywords": true, "id": true}
	lookupExcluded      = map[string]bool{"id": true}
)

// FormatForLLM renders a result set as the compact numbered-line context
// block fed to the answer prompt. The shape depends on the query type.
func FormatForLLM(result domain.ResultSet, queryType domain.QueryType) string {
	if result.Empty() {
		return emptyResultNotice
	}

	total := result.Total()
	var b strings.Builder
	b.WriteString("=== SQL 검색 결과 ===\n\n")

	switch queryType {
	case domain.QueryCount:
		b.WriteString(fmt.Sprintf("총 건수: %v", countValue(result)))

	case domain.QueryLookup:
		b.WriteString(fmt.Sprintf("조회 결과 (총 %d건):\n\n", len(result.Rows)))
		writeRows(&b, result, lookupExcluded, true)

	default: // aggregation
		if total > int64(len(result.Rows)) {
			b.WriteString(fmt.Sprintf("집계 결과 (총 %d건 중 상위 %d건):\n\n", total, len(result.Rows)))
		} else {
			b.WriteString(fmt.Sprintf("집계 결과 (총 %d건):\n\n", len(result.Rows)))
		}
		writeRows(&b, result, aggregationExcluded, false)
	}

	return b.String()
}

// writeRows emits each row as "[n] col: value, col: value" in column order,
// skipping nil values and excluded columns.
func writeRows(b *strings.Builder, result domain.ResultSet, excluded map[string]bool, truncate bool) {
	for idx, row := range result.Rows {
		var parts []string
		for _, col := range result.Columns {
			value, ok := row[col]
			if !ok || value == nil || excluded[col] {
				continue
			}
			rendered := fmt.Sprintf("%v", value)
			if truncate {
				rendered = truncateValue(rendered)
			}
			parts = append(parts, col+": "+rendered)
		}
		b.WriteString(fmt.Sprintf("[%d] %s", idx+1, strings.Join(parts, ", ")))
		if idx < len(result.Rows)-1 {
			b.WriteString("\n")
		}
	}
}

// countValue extracts the count from the first row, trying the conventional
// column names before falling back to the row count.
func countValue(result domain.ResultSet) any {
	first := result.Rows[0]
	if v, ok := first["total"]; ok && v != nil {
		return v
	}
	if v, ok := first["count"]; ok && v != nil {
		return v
	}
	return len(result.Rows)
}

func truncateValue(value string) string {
	runes := []rune(value)
	if len(runes) <= longValueLimit {
		return value
	}
	return string(runes[:longValueLimit]) + "..."
}
