// Package domain defines core business entities and value objects for askdb.
//
// This file contains the outputs of the three classification layers. Each
// request produces exactly one QueryAnalysis, one RelevanceDecision and one
// RetrievalConfig, in that order; all three are immutable once built and
// none of them outlives the request.
package domain

// QuestionType is the coarse classification of an incoming question.
type QuestionType string

const (
	QuestionAggregation QuestionType = "aggregation"
	QuestionLookup      QuestionType = "lookup"
	QuestionGeneral     QuestionType = "general"
)

// ParseQuestionType maps free-form model output onto the closed set,
// defaulting to general.
func ParseQuestionType(value string) QuestionType {
	switch QuestionType(value) {
	case QuestionAggregation, QuestionLookup:
		return QuestionType(value)
	default:
		return QuestionGeneral
	}
}

// SearchMethod selects the retrieval backend for a request.
type SearchMethod string

const (
	SearchNone SearchMethod = "none"
	SearchSQL  SearchMethod = "sql"
	SearchBoth SearchMethod = "both"
)

// EntitySlots fixes the iteration order of the entity slot map. Search-query
// prefixing and prompt hints must be deterministic, so every consumer walks
// the slots in this order.
var EntitySlots = []string{"category", "item_type", "region", "year", "month"}

// Entities maps slot names to extracted values. A missing or nil value means
// the slot was not present in the question.
type Entities map[string]any

// Values returns the non-nil slot values in EntitySlots order.
func (e Entities) Values() []any {
	var out []any
	for _, slot := range EntitySlots {
		if v, ok := e[slot]; ok && v != nil {
			out = append(out, v)
		}
	}
	return out
}

// QueryAnalysis is the Layer 1 output: intent, entities and keywords
// extracted from the raw question.
type QueryAnalysis struct {
	Intent       string       `json:"intent"`
	Entities     Entities     `json:"entities"`
	Keywords     []string     `json:"keywords"`
	QuestionType QuestionType `json:"question_type"`
	Confidence   float64      `json:"confidence"`
}

// RelevanceDecision is the Layer 2 output: whether the question concerns the
// stored domain data and whether answering it needs retrieval.
type RelevanceDecision struct {
	IsDomainRelated   bool    `json:"is_domain_related"`
	RequiresRetrieval bool    `json:"requires_retrieval"`
	Confidence        float64 `json:"confidence"`
	Reason            string  `json:"reason"`
}

// RetrievalConfig is the Layer 3 output: concrete search parameters for the
// SQL retrieval step.
type RetrievalConfig struct {
	UseRetrieval   bool           `json:"use_retrieval"`
	SearchMethod   SearchMethod   `json:"search_method"`
	TopK           int            `json:"top_k"`
	ScoreThreshold float64        `json:"score_threshold"`
	SearchQuery    string         `json:"search_query"`
	MetadataFilter map[string]any `json:"metadata_filter,omitempty"`
}

// ClassifierDebug exposes every intermediate field of the three layers for
// observability. It is returned alongside the RetrievalConfig and carries no
// behavior.
type ClassifierDebug struct {
	Layer1Analysis QueryAnalysis     `json:"layer1_analysis"`
	Layer2Decision RelevanceDecision `json:"layer2_decision"`
	Layer3Config   RetrievalConfig   `json:"layer3_config"`
}
