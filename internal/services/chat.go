package services

import (
	"context"
	"fmt"
	"time"

	"github.com/doeshing/askdb-go/internal/domain"
	"github.com/doeshing/askdb-go/internal/ports"
)

const ragSystemPromptFormat = `당신은 SQL 데이터 분석 전문가입니다.

=== 검색된 데이터 ===
%s

답변 작성 규칙:
1. **데이터 완전성**: 검색된 모든 데이터를 빠짐없이 표시
2. **총 개수 표현**: "[조건]에 해당하는 N개 항목"으로 표현
3. 통계 질문: **표 형식**으로 정리 (마크다운 테이블)
4. **차트 시각화** (명시적 요청 시에만):
   - "차트", "그래프", "파이차트", "막대그래프" 등 요청 시에만 생성
   - 단순 "통계", "보여줘"는 표만 제공
   - **Chart.js JSON 형식**:

   파이 차트:
   ` + "```chartjs" + `
   {
     "type": "pie",
     "title": "제목",
     "labels": ["항목1", "항목2"],
     "data": [값1, 값2]
   }
   ` + "```" + `

   막대 그래프:
   ` + "```chartjs" + `
   {
     "type": "bar",
     "title": "제목",
     "labels": ["항목1", "항목2"],
     "data": [값1, 값2]
   }
   ` + "```" + `
5. 숫자는 정확하게, 간결하고 명확하게`

const plainSystemPrompt = `당신은 친절하고 전문적인 AI 어시스턴트입니다.
사용자의 질문에 정확하고 도움이 되는 답변을 제공하세요.`

// ChatService assembles the answer prompt for one chat turn and, for the
// non-streaming path, produces the final reply.
type ChatService struct {
	Classifier ports.Classifier
	Retrieval  *RetrievalService
	Gateway    ports.Completer
	Logger     ports.Logger

	// AnswerTimeout bounds the final completion call. Classification and
	// SQL generation carry their own shorter deadlines.
	AnswerTimeout time.Duration
}

// BuildContext classifies the question and, when retrieval is warranted,
// runs the database search. Retrieval failures are absorbed: an unsafe or
// broken statement means the model answers without data rather than the
// request failing.
func (s *ChatService) BuildContext(ctx context.Context, req domain.ChatRequest) (string, domain.ClassifierDebug) {
	query := req.LastUserContent()
	if query == "" {
		return "", domain.ClassifierDebug{}
	}

	var (
		useRetrieval bool
		debug        domain.ClassifierDebug
	)
	searchQuery := query
	if req.UseRAG != nil {
		// Explicit client override skips the pipeline entirely, so the raw
		// question is all there is to search with.
		useRetrieval = *req.UseRAG
	} else {
		var config domain.RetrievalConfig
		useRetrieval, config, debug = s.Classifier.Classify(ctx, query)
		if config.SearchQuery != "" {
			searchQuery = config.SearchQuery
		}
	}

	if !useRetrieval {
		return "", debug
	}

	result, err := s.Retrieval.Search(ctx, searchQuery, debug.Layer1Analysis.Entities, debug.Layer1Analysis.QuestionType)
	if err != nil {
		s.Logger.Warn("retrieval failed, answering without context", map[string]interface{}{"error": err.Error()})
		return "", debug
	}
	return result.Context, debug
}

// BuildMessages prepends the system prompt to the client conversation. The
// streaming handler uses this directly and relays tokens itself.
func (s *ChatService) BuildMessages(ctx context.Context, req domain.ChatRequest) []domain.ChatMessage {
	ragContext, _ := s.BuildContext(ctx, req)

	system := plainSystemPrompt
	if ragContext != "" {
		system = ragSystemPrompt(ragContext)
	}

	messages := make([]domain.ChatMessage, 0, len(req.Messages)+1)
	messages = append(messages, domain.ChatMessage{Role: "system", Content: system})
	messages = append(messages, req.Messages...)
	return messages
}

// Answer handles the non-streaming chat path end to end.
func (s *ChatService) Answer(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	messages := s.BuildMessages(ctx, req)

	reply, err := s.Gateway.Complete(ctx, ports.CompletionRequest{
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Timeout:     s.AnswerTimeout,
	})
	if err != nil {
		return domain.ChatResponse{}, err
	}
	return domain.ChatResponse{Message: reply, Success: true}, nil
}

func ragSystemPrompt(ragContext string) string {
	return fmt.Sprintf(ragSystemPromptFormat, ragContext)
}
