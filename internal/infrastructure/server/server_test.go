package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/doeshing/askdb-go/internal/domain"
	"github.com/doeshing/askdb-go/internal/pkg/logger"
	"github.com/doeshing/askdb-go/internal/ports"
	"github.com/doeshing/askdb-go/internal/services"
)

func newTestServer(streamer ports.Streamer, completer ports.Completer) *Server {
	return newTestServerWithExecutor(streamer, completer, stubExecutor{})
}

func newTestServerWithExecutor(streamer ports.Streamer, completer ports.Completer, executor ports.RowExecutor) *Server {
	chat := &services.ChatService{
		Classifier: stubClassifier{},
		Retrieval: &services.RetrievalService{
			Generator: stubGenerator{},
			Executor:  executor,
			Logger:    logger.NewNop(),
		},
		Gateway: completer,
		Logger:  logger.NewNop(),
	}
	return NewServer(domain.ServerSettings{MaxConcurrentLLM: 4}, chat, streamer, executor, logger.NewNop())
}

func TestChatReturnsAnswer(t *testing.T) {
	srv := newTestServer(&stubStreamer{}, stubCompleter{reply: "안녕하세요!"})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body := `{"messages": [{"role": "user", "content": "안녕"}]}`
	resp, err := http.Post(ts.URL+"/api/chat", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/chat error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got domain.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Success || got.Message != "안녕하세요!" {
		t.Fatalf("response = %+v", got)
	}
}

func TestChatRejectsEmptyMessages(t *testing.T) {
	srv := newTestServer(&stubStreamer{}, stubCompleter{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/chat", "application/json", strings.NewReader(`{"messages": []}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestChatRejectsMalformedBody(t *testing.T) {
	srv := newTestServer(&stubStreamer{}, stubCompleter{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/chat", "application/json", strings.NewReader("{broken"))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestChatStreamRelaysFrames(t *testing.T) {
	streamer := &stubStreamer{deltas: []string{"안녕", "하세요"}}
	srv := newTestServer(streamer, stubCompleter{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body := `{"messages": [{"role": "user", "content": "인사해줘"}]}`
	resp, err := http.Post(ts.URL+"/api/chat/stream", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	raw := readAll(t, resp)
	if !strings.Contains(raw, `data: {"content":"안녕"}`) {
		t.Fatalf("missing first frame: %q", raw)
	}
	if !strings.Contains(raw, `data: {"content":"하세요"}`) {
		t.Fatalf("missing second frame: %q", raw)
	}
}

func TestChatStreamEmitsErrorFrame(t *testing.T) {
	streamer := &stubStreamer{err: errors.New("upstream gone")}
	srv := newTestServer(streamer, stubCompleter{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body := `{"messages": [{"role": "user", "content": "q"}]}`
	resp, err := http.Post(ts.URL+"/api/chat/stream", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	raw := readAll(t, resp)
	if !strings.Contains(raw, `"error":"upstream gone"`) {
		t.Fatalf("missing error frame: %q", raw)
	}
}

func TestChatStopUnknownRequest(t *testing.T) {
	srv := newTestServer(&stubStreamer{}, stubCompleter{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/chat/stop", "application/json",
		strings.NewReader(`{"request_id": "req_missing"}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	var got struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Success {
		t.Fatal("stop of unknown id must report success=false")
	}
}

func TestRegistryStopCancelsContext(t *testing.T) {
	reg := NewRequestRegistry()
	ctx, release := reg.Register(context.Background(), "req_1")
	defer release()

	if !reg.Stop("req_1") {
		t.Fatal("Stop() = false for registered id")
	}
	select {
	case <-ctx.Done():
	default:
		t.Fatal("context not cancelled after Stop")
	}
	if !reg.Stopped("req_1") {
		t.Fatal("Stopped() = false after Stop")
	}
}

func TestRegistryReleaseForgetsRequest(t *testing.T) {
	reg := NewRequestRegistry()
	_, release := reg.Register(context.Background(), "req_2")
	release()

	if reg.Stop("req_2") {
		t.Fatal("Stop() = true after release")
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&stubStreamer{}, stubCompleter{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	defer resp.Body.Close()

	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["status"] != "ok" {
		t.Fatalf("health = %v", got)
	}
	if got["database"] != "ok" {
		t.Fatalf("database = %v, want ok", got["database"])
	}
}

func TestHealthReportsStoreFailure(t *testing.T) {
	srv := newTestServerWithExecutor(&stubStreamer{}, stubCompleter{}, stubExecutor{queryErr: errors.New("no such file")})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	defer resp.Body.Close()

	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["status"] != "degraded" {
		t.Fatalf("status = %v, want degraded", got["status"])
	}
	if got["database"] != "unreachable" {
		t.Fatalf("database = %v, want unreachable", got["database"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&stubStreamer{}, stubCompleter{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if raw := readAll(t, resp); !strings.Contains(raw, "askdb_http_requests_total") {
		t.Fatal("metrics output missing askdb counters")
	}
}

func TestIndexServesEmbeddedUI(t *testing.T) {
	srv := newTestServer(&stubStreamer{}, stubCompleter{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if raw := readAll(t, resp); !strings.Contains(raw, "<title>askdb</title>") {
		t.Fatal("index page not served")
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(&stubStreamer{}, stubCompleter{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/chat", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	var b strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		b.Write(buf[:n])
		if err != nil {
			break
		}
	}
	return b.String()
}

type stubStreamer struct {
	mu     sync.Mutex
	deltas []string
	err    error
}

func (s *stubStreamer) StreamChat(_ context.Context, _ []domain.ChatMessage, _ int, _ float64, onDelta func(string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.deltas {
		onDelta(d)
	}
	return s.err
}

type stubCompleter struct {
	reply string
	err   error
}

func (s stubCompleter) Complete(context.Context, ports.CompletionRequest) (string, error) {
	return s.reply, s.err
}

type stubClassifier struct{}

func (stubClassifier) Classify(context.Context, string) (bool, domain.RetrievalConfig, domain.ClassifierDebug) {
	return false, domain.RetrievalConfig{SearchMethod: domain.SearchNone}, domain.ClassifierDebug{}
}

type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, string, domain.Entities) (domain.GeneratedSQL, error) {
	return domain.GeneratedSQL{}, errors.New("not used")
}

type stubExecutor struct {
	queryErr error
}

func (s stubExecutor) Query(context.Context, string) (domain.ResultSet, error) {
	return domain.ResultSet{}, s.queryErr
}

func (s stubExecutor) QueryScalar(context.Context, string, string) (int64, error) {
	return 0, s.queryErr
}
