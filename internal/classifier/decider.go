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

// Decider is Layer 2: given the Layer 1 analysis it decides whether the
// question concerns the managed dataset and whether answering it needs a
// database retrieval.
type Decider struct {
	gateway ports.Completer
	timeout time.Duration
	logger  ports.Logger
}

// NewDecider builds a Layer 2 decider with its per-call deadline.
func NewDecider(gateway ports.Completer, timeout time.Duration, log ports.Logger) *Decider {
	return &Decider{gateway: gateway, timeout: timeout, logger: log}
}

const decidePromptFormat = `당신은 데이터 검색 필요성 판단 전문가입니다.

분석된 질문 정보:
- 의도: %s
- 질문 유형: %s
- 키워드: %s
- 원본 질문: "%s"

이 질문에 답하기 위해 데이터베이스 검색이 필요한지 판단하세요.

판단 기준:
1. 저장된 데이터의 통계, 집계, 조회가 필요한 질문인가?
2. 일반 상식이나 대화만으로 답할 수 있는 질문인가?

JSON 형식으로만 답하세요:
{
    "is_domain_related": true 또는 false,
    "requires_retrieval": true 또는 false,
    "confidence": 0.0에서 1.0 사이의 판단 신뢰도,
    "reason": "판단 근거 한 줄"
}`

// Decide runs Layer 2 for one analyzed question. Like Layer 1 it never
// fails: gateway or parse errors yield the keyword-based fallback rule.
func (d *Decider) Decide(ctx context.Context, query string, analysis domain.QueryAnalysis) domain.RelevanceDecision {
	prompt := fmt.Sprintf(decidePromptFormat,
		analysis.Intent,
		string(analysis.QuestionType),
		strings.Join(analysis.Keywords, ", "),
		query,
	)

	content, err := d.gateway.Complete(ctx, ports.CompletionRequest{
		Messages:    []domain.ChatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   200,
		Temperature: 0.1,
		Timeout:     d.timeout,
	})
	if err != nil {
		d.logger.Warn("layer 2 decision failed, using fallback", map[string]interface{}{"error": err.Error()})
		return fallbackDecision(analysis)
	}

	var reply struct {
		IsDomainRelated   *bool    `json:"is_domain_related"`
		RequiresRetrieval *bool    `json:"requires_retrieval"`
		Confidence        *float64 `json:"confidence"`
		Reason            string   `json:"reason"`
	}
	if err := jsonx.ExtractObject(content, &reply); err != nil {
		d.logger.Warn("layer 2 reply unparsable, using fallback", map[string]interface{}{"error": err.Error()})
		return fallbackDecision(analysis)
	}

	return domain.RelevanceDecision{
		IsDomainRelated:   boolOr(reply.IsDomainRelated, false),
		RequiresRetrieval: boolOr(reply.RequiresRetrieval, false),
		Confidence:        confidenceOr(reply.Confidence, 0.5),
		Reason:            valueOr(reply.Reason, "no reason given"),
	}
}

// fallbackDecision applies the deterministic rule: retrieval is required
// when the question type is aggregation or lookup and at least one keyword
// survived analysis.
func fallbackDecision(analysis domain.QueryAnalysis) domain.RelevanceDecision {
	observability.IncrementFallback("decide")
	retrieval := (analysis.QuestionType == domain.QuestionAggregation ||
		analysis.QuestionType == domain.QuestionLookup) &&
		len(analysis.Keywords) > 0
	return domain.RelevanceDecision{
		IsDomainRelated:   retrieval,
		RequiresRetrieval: retrieval,
		Confidence:        0.5,
		Reason:            "Fallback decision based on keywords",
	}
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
