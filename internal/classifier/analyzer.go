// Package classifier implements the three-layer question classification
// pipeline: query analysis, relevance decision and retrieval trigger.
//
// Layers 1 and 2 call the language-model gateway and degrade to
// deterministic fallbacks on any failure; Layer 3 is pure. One failed call
// triggers the fallback immediately, there is no retry or backoff, so a slow
// or broken model endpoint costs availability nothing.
package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/doeshing/askdb-go/internal/domain"
	"github.com/doeshing/askdb-go/internal/observability"
	"github.com/doeshing/askdb-go/internal/pkg/jsonx"
	"github.com/doeshing/askdb-go/internal/ports"
)

// fallbackKeywords is the fixed list scanned when Layer 1 cannot reach the
// model. Only substrings actually present in the question survive into the
// fallback analysis.
var fallbackKeywords = []string{"통계", "데이터", "조회", "검색", "목록", "내역"}

// Analyzer is Layer 1: it extracts intent, entities, keywords and a coarse
// question type from the raw user text.
type Analyzer struct {
	gateway ports.Completer
	timeout time.Duration
	logger  ports.Logger
}

// NewAnalyzer builds a Layer 1 analyzer with its per-call deadline.
func NewAnalyzer(gateway ports.Completer, timeout time.Duration, log ports.Logger) *Analyzer {
	return &Analyzer{gateway: gateway, timeout: timeout, logger: log}
}

const analyzePromptFormat = `당신은 질문 분석 전문가입니다. 아래 사용자 질문을 분석하세요.

사용자 질문: "%s"

다음 정보를 JSON 형식으로 추출하세요:
{
    "intent": "질문의 주요 의도 (예: 데이터통계, 항목조회, 일반대화, 기술질문 등)",
    "entities": {
        "category": "카테고리명 (없으면 null)",
        "item_type": "항목 유형 (없으면 null)",
        "region": "지역명 (없으면 null)",
        "year": 연도 숫자 (예: 2025, 없으면 null),
        "month": 월 숫자 (예: 7, 없으면 null)
    },
    "keywords": ["핵심", "키워드", "리스트"],
    "question_type": "aggregation (통계/집계) | lookup (조회/검색) | general (일반대화)",
    "confidence": 0.0에서 1.0 사이의 분석 신뢰도
}

**중요**: 오직 JSON만 출력하세요. 다른 설명은 불필요합니다.`

// Analyze runs Layer 1 for one question. It never fails: any gateway or
// parse error yields the keyword-matching fallback.
func (a *Analyzer) Analyze(ctx context.Context, query string) domain.QueryAnalysis {
	prompt := fmt.Sprintf(analyzePromptFormat, query)

	content, err := a.gateway.Complete(ctx, ports.CompletionRequest{
		Messages:    []domain.ChatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   300,
		Temperature: 0.1,
		Timeout:     a.timeout,
	})
	if err != nil {
		a.logger.Warn("layer 1 analysis failed, using fallback", map[string]interface{}{"error": err.Error()})
		return a.fallbackAnalysis(query)
	}

	var reply struct {
		Intent       string          `json:"intent"`
		Entities     domain.Entities `json:"entities"`
		Keywords     []string        `json:"keywords"`
		QuestionType string          `json:"question_type"`
		Confidence   *float64        `json:"confidence"`
	}
	if err := jsonx.ExtractObject(content, &reply); err != nil {
		a.logger.Warn("layer 1 reply unparsable, using fallback", map[string]interface{}{"error": err.Error()})
		return a.fallbackAnalysis(query)
	}

	return domain.QueryAnalysis{
		Intent:       valueOr(reply.Intent, "unknown"),
		Entities:     entitiesOrEmpty(reply.Entities),
		Keywords:     keywordsOrEmpty(reply.Keywords),
		QuestionType: domain.ParseQuestionType(reply.QuestionType),
		Confidence:   confidenceOr(reply.Confidence, 0.5),
	}
}

// fallbackAnalysis scans the question for the fixed keyword list and returns
// a low-confidence general analysis.
func (a *Analyzer) fallbackAnalysis(query string) domain.QueryAnalysis {
	observability.IncrementFallback("analyze")
	keywords := []string{}
	for _, kw := range fallbackKeywords {
		if strings.Contains(query, kw) {
			keywords = append(keywords, kw)
		}
	}
	return domain.QueryAnalysis{
		Intent:       "unknown",
		Entities:     domain.Entities{},
		Keywords:     keywords,
		QuestionType: domain.QuestionGeneral,
		Confidence:   0.3,
	}
}

func valueOr(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func entitiesOrEmpty(e domain.Entities) domain.Entities {
	if e == nil {
		return domain.Entities{}
	}
	return e
}

func keywordsOrEmpty(ks []string) []string {
	if ks == nil {
		return []string{}
	}
	return ks
}

func confidenceOr(c *float64, def float64) float64 {
	if c == nil {
		return def
	}
	return *c
}
