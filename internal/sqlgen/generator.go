// Package sqlgen turns natural-language questions into validated read-only
// SQL statements via the language-model gateway.
//
// Unlike the classification layers this package has no fallback: a failed
// generation or a rejected statement is a hard error, because executing a
// guessed statement against the database is worse than answering without
// retrieval.
package sqlgen

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doeshing/askdb-go/internal/domain"
	"github.com/doeshing/askdb-go/internal/observability"
	"github.com/doeshing/askdb-go/internal/pkg/jsonx"
	"github.com/doeshing/askdb-go/internal/ports"
)

// schemaInfo is the table description handed to the model verbatim. Edit
// this text when the underlying database schema changes.
const schemaInfo = `
테이블: your_table (데이터 테이블)

주요 컬럼:
- id: INTEGER (기본키)
- date: TEXT (날짜 형식: YYYY-MM-DD HH:MM)
- year: INTEGER (연도)
- month: INTEGER (월)
- day: INTEGER (일)
- category: TEXT (카테고리/분류)
- sub_category: TEXT (하위 카테고리)
- region: TEXT (지역)
- name: TEXT (이름/명칭)
- value: INTEGER (값/수량)
- keywords: TEXT (키워드 JSON 배열 문자열)
`

const generatePromptFormat = `당신은 SQL 전문가입니다. 사용자 질문을 분석하여 SQL 쿼리를 생성하세요.

사용자 질문: "%s"%s

%s

다음 JSON 형식으로 응답하세요:
{
    "main_sql": "메인 SQL 쿼리 (SELECT ... FROM your_table ...)",
    "total_count_sql": "총 개수 조회 SQL (그룹핑인 경우만, 없으면 null)",
    "query_type": "aggregation|count|lookup"
}

**SQL 작성 규칙**:
1. **LIMIT 자동 결정**:
   - "상위 N개", "top N" → LIMIT N
   - "전체", "모든", "다" → LIMIT 없음
   - 통계 질문 기본 → LIMIT 20

2. **GROUP BY 결정**:
   - 통계/집계 질문 → 적절한 컬럼으로 GROUP BY
   - 단순 건수 질문 → COUNT(*)

3. **query_type 결정**:
   - aggregation: 통계/집계 (GROUP BY 사용)
   - count: 단순 건수 (COUNT만)
   - lookup: 상세 조회 (개별 레코드)

**중요**: 오직 JSON만 출력. SQL은 반드시 문자열로 작성.`

// Generator produces validated SQL from natural language.
type Generator struct {
	gateway ports.Completer
	timeout time.Duration
	logger  ports.Logger
}

var _ ports.SQLGenerator = (*Generator)(nil)

// NewGenerator builds a generator with its per-call deadline.
func NewGenerator(gateway ports.Completer, timeout time.Duration, log ports.Logger) *Generator {
	return &Generator{gateway: gateway, timeout: timeout, logger: log}
}

// Generate asks the model for a statement pair and validates both before
// returning. Entity slots extracted during classification are passed along
// as a hint block in the prompt.
func (g *Generator) Generate(ctx context.Context, query string, entities domain.Entities) (domain.GeneratedSQL, error) {
	prompt := fmt.Sprintf(generatePromptFormat, query, entityHint(entities), schemaInfo)

	content, err := g.gateway.Complete(ctx, ports.CompletionRequest{
		Messages:    []domain.ChatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   500,
		Temperature: 0.1,
		Timeout:     g.timeout,
	})
	if err != nil {
		observability.ObserveSQLGeneration("error")
		return domain.GeneratedSQL{}, fmt.Errorf("generate sql: %w", err)
	}

	var reply struct {
		MainSQL       string `json:"main_sql"`
		TotalCountSQL string `json:"total_count_sql"`
		QueryType     string `json:"query_type"`
	}
	if err := jsonx.ExtractObject(content, &reply); err != nil {
		observability.ObserveSQLGeneration("error")
		return domain.GeneratedSQL{}, fmt.Errorf("parse sql reply: %w", err)
	}

	generated := domain.GeneratedSQL{
		MainStatement:  reply.MainSQL,
		CountStatement: reply.TotalCountSQL,
		QueryType:      domain.ParseQueryType(reply.QueryType),
	}

	if err := Validate(generated.MainStatement); err != nil {
		observability.ObserveSQLGeneration("rejected")
		return domain.GeneratedSQL{}, err
	}
	if generated.CountStatement != "" {
		if err := Validate(generated.CountStatement); err != nil {
			observability.ObserveSQLGeneration("rejected")
			return domain.GeneratedSQL{}, err
		}
	}

	observability.ObserveSQLGeneration("ok")
	g.logger.Info("sql generated", map[string]interface{}{
		"main_sql":   generated.MainStatement,
		"query_type": string(generated.QueryType),
	})
	return generated, nil
}

// entityHint renders the populated entity slots as a JSON block for the
// prompt, in fixed slot order. Empty entities produce no hint at all.
func entityHint(entities domain.Entities) string {
	if len(entities) == 0 {
		return ""
	}
	filtered := make(map[string]any)
	for _, slot := range domain.EntitySlots {
		if v, ok := entities[slot]; ok && v != nil {
			filtered[slot] = v
		}
	}
	if len(filtered) == 0 {
		return ""
	}
	encoded, err := json.MarshalIndent(filtered, "", "  ")
	if err != nil {
		return ""
	}
	return fmt.Sprintf("\n질문에 명시된 엔티티:\n%s\n", encoded)
}
