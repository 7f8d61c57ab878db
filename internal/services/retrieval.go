// Package services orchestrates the request lifecycle: classification,
// retrieval and answer-context assembly.
package services

import (
	"context"
	"fmt"

	"github.com/doeshing/askdb-go/internal/domain"
	"github.com/doeshing/askdb-go/internal/ports"
	"github.com/doeshing/askdb-go/internal/store"
)

// RetrievalResult bundles everything one retrieval produced, for both the
// answer prompt and the debug surface.
type RetrievalResult struct {
	ResultSet domain.ResultSet
	Generated domain.GeneratedSQL
	Context   string
}

// RetrievalService runs the generate-execute-format sequence for questions
// the classifier routed to the database.
type RetrievalService struct {
	Generator ports.SQLGenerator
	Executor  ports.RowExecutor
	Logger    ports.Logger
}

// Search answers one routed question from the database. A validation failure
// or execution error on either statement aborts the whole retrieval; callers
// decide whether to answer without context.
func (s *RetrievalService) Search(ctx context.Context, query string, entities domain.Entities, questionType domain.QuestionType) (RetrievalResult, error) {
	s.Logger.Debug("retrieval search", map[string]interface{}{
		"query":         query,
		"question_type": string(questionType),
	})

	generated, err := s.Generator.Generate(ctx, query, entities)
	if err != nil {
		return RetrievalResult{}, err
	}

	result, err := s.Executor.Query(ctx, generated.MainStatement)
	if err != nil {
		return RetrievalResult{}, fmt.Errorf("execute main statement: %w", err)
	}

	if generated.CountStatement != "" {
		total, err := s.Executor.QueryScalar(ctx, generated.CountStatement, "total")
		if err != nil {
			return RetrievalResult{}, fmt.Errorf("execute count statement: %w", err)
		}
		result.TotalCount = &total
	}

	return RetrievalResult{
		ResultSet: result,
		Generated: generated,
		Context:   store.FormatForLLM(result, generated.QueryType),
	}, nil
}
