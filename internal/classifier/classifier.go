package classifier

import (
	"context"

	"github.com/doeshing/askdb-go/internal/domain"
	"github.com/doeshing/askdb-go/internal/observability"
	"github.com/doeshing/askdb-go/internal/ports"
)

// Pipeline chains the three layers. It satisfies ports.Classifier.
type Pipeline struct {
	analyzer *Analyzer
	decider  *Decider
	trigger  *Trigger
	logger   ports.Logger
}

var _ ports.Classifier = (*Pipeline)(nil)

// NewPipeline wires the three layers into a single classifier.
func NewPipeline(analyzer *Analyzer, decider *Decider, trigger *Trigger, log ports.Logger) *Pipeline {
	return &Pipeline{analyzer: analyzer, decider: decider, trigger: trigger, logger: log}
}

// Classify runs the full pipeline for one question. It always returns a
// usable RetrievalConfig; model failures surface only as lowered confidence
// in the debug payload.
func (p *Pipeline) Classify(ctx context.Context, query string) (bool, domain.RetrievalConfig, domain.ClassifierDebug) {
	analysis := p.analyzer.Analyze(ctx, query)
	decision := p.decider.Decide(ctx, query, analysis)
	config := p.trigger.Build(query, analysis, decision)

	observability.ObserveClassification(string(analysis.QuestionType), config.UseRetrieval)
	p.logger.Info("question classified", map[string]interface{}{
		"question_type":      string(analysis.QuestionType),
		"requires_retrieval": decision.RequiresRetrieval,
		"search_method":      string(config.SearchMethod),
		"top_k":              config.TopK,
	})

	return config.UseRetrieval, config, domain.ClassifierDebug{
		Layer1Analysis: analysis,
		Layer2Decision: decision,
		Layer3Config:   config,
	}
}
