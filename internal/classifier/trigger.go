package classifier

import (
	"fmt"
	"strings"

	"github.com/doeshing/askdb-go/internal/domain"
)

// Trigger is Layer 3: a pure mapping from the first two layers onto concrete
// retrieval parameters. It never calls the model and cannot fail.
type Trigger struct {
	defaultTopK int
	lookupTopK  int
}

// NewTrigger builds a Layer 3 trigger with the configured result limits.
func NewTrigger(settings domain.RetrievalSettings) *Trigger {
	return &Trigger{
		defaultTopK: settings.DefaultTopK,
		lookupTopK:  settings.LookupTopK,
	}
}

// Build derives the retrieval configuration for a question. When the Layer 2
// decision ruled retrieval out the result is the inert config.
func (t *Trigger) Build(query string, analysis domain.QueryAnalysis, decision domain.RelevanceDecision) domain.RetrievalConfig {
	if !decision.RequiresRetrieval {
		return domain.RetrievalConfig{
			UseRetrieval: false,
			SearchMethod: domain.SearchNone,
		}
	}

	topK := t.defaultTopK
	threshold := 0.7
	switch analysis.QuestionType {
	case domain.QuestionAggregation:
		threshold = 0.5
	case domain.QuestionLookup:
		topK = t.lookupTopK
	}

	return domain.RetrievalConfig{
		UseRetrieval:   true,
		SearchMethod:   domain.SearchSQL,
		TopK:           topK,
		ScoreThreshold: threshold,
		SearchQuery:    buildSearchQuery(query, analysis.Entities),
		MetadataFilter: metadataFilter(analysis.Entities),
	}
}

// buildSearchQuery prefixes the question with the extracted entity values,
// joined in slot order. The raw question text always survives at the end so
// nothing the user said is lost.
func buildSearchQuery(query string, entities domain.Entities) string {
	values := entities.Values()
	if len(values) == 0 {
		return query
	}
	parts := make([]string, 0, len(values)+1)
	for _, v := range values {
		parts = append(parts, fmt.Sprintf("%v", v))
	}
	parts = append(parts, query)
	return strings.Join(parts, " ")
}

// metadataFilter keeps the populated entity slots as a structured filter for
// downstream prompt hints.
func metadataFilter(entities domain.Entities) map[string]any {
	var filter map[string]any
	for _, slot := range domain.EntitySlots {
		if v, ok := entities[slot]; ok && v != nil {
			if filter == nil {
				filter = make(map[string]any)
			}
			filter[slot] = v
		}
	}
	return filter
}
