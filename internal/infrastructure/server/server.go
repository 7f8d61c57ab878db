// Package server exposes the chat HTTP API.
//
// Endpoints:
//   - POST /api/chat        - chat completion (non-streaming)
//   - POST /api/chat/stream - chat completion over SSE
//   - POST /api/chat/stop   - abort an in-flight stream
//   - GET  /health          - health check
//   - GET  /metrics         - Prometheus metrics
//   - GET  /                - embedded chat web UI
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/doeshing/askdb-go/assets"
	"github.com/doeshing/askdb-go/internal/domain"
	"github.com/doeshing/askdb-go/internal/infrastructure/llm"
	"github.com/doeshing/askdb-go/internal/observability"
	"github.com/doeshing/askdb-go/internal/ports"
	"github.com/doeshing/askdb-go/internal/services"
)

// MaxRequestBodySize bounds inbound JSON payloads.
const MaxRequestBodySize = 1 * 1024 * 1024

// Server is the HTTP transport for the question-answering pipeline.
type Server struct {
	host string
	port int

	chat     *services.ChatService
	streamer ports.Streamer
	executor ports.RowExecutor
	registry *RequestRegistry
	logger   ports.Logger

	// semaphore caps concurrent streaming completions so a burst of
	// browser tabs cannot overload the model endpoint.
	semaphore chan struct{}

	router *http.ServeMux
	server *http.Server
}

// NewServer wires the transport over the chat service. The executor backs
// the health endpoint's store probe.
func NewServer(cfg domain.ServerSettings, chat *services.ChatService, streamer ports.Streamer, executor ports.RowExecutor, log ports.Logger) *Server {
	slots := cfg.MaxConcurrentLLM
	if slots <= 0 {
		slots = 64
	}
	s := &Server{
		host:      cfg.Host,
		port:      cfg.Port,
		chat:      chat,
		streamer:  streamer,
		executor:  executor,
		registry:  NewRequestRegistry(),
		logger:    log,
		semaphore: make(chan struct{}, slots),
		router:    http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /api/chat", s.handleChat)
	s.router.HandleFunc("POST /api/chat/stream", s.handleChatStream)
	s.router.HandleFunc("POST /api/chat/stop", s.handleChatStop)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.Handle("GET /metrics", promhttp.Handler())

	static, err := fs.Sub(assets.StaticFS, "static")
	if err == nil {
		s.router.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
		s.router.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			page, err := fs.ReadFile(static, "index.html")
			if err != nil {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write(page)
		})
	}
}

// Handler returns the full middleware-wrapped handler, exported for tests.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(s.logger),
		CORSMiddleware(),
		LoggingMiddleware(s.logger),
		observability.MetricsMiddleware,
	)(s.router)
}

// Start blocks serving HTTP until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// No write timeout: SSE responses stay open for the whole
		// generation.
		IdleTimeout: 120 * time.Second,
	}
	s.logger.Info("server listening", map[string]interface{}{"addr": addr})
	return s.server.ListenAndServe()
}

// Shutdown drains connections gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	resp, err := s.chat.Answer(r.Context(), req)
	if err != nil {
		if errors.Is(err, llm.ErrTimeout) {
			s.writeError(w, http.StatusGatewayTimeout, "Request timeout")
			return
		}
		s.logger.Error("chat failed", err, nil)
		s.writeError(w, http.StatusInternalServerError, "Server Error")
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		s.writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = NewRequestID()
	}

	streamCtx, release := s.registry.Register(r.Context(), requestID)
	defer release()

	// Gate before touching the model endpoint. Context cancellation here
	// means the client went away while queued.
	select {
	case s.semaphore <- struct{}{}:
		defer func() { <-s.semaphore }()
	case <-streamCtx.Done():
		return
	}
	defer observability.StreamStarted()()

	messages := s.chat.BuildMessages(streamCtx, req)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	err := s.streamer.StreamChat(streamCtx, messages, req.MaxTokens, req.Temperature, func(delta string) {
		s.sendFrame(w, flusher, map[string]any{"content": delta})
	})
	if err != nil {
		if s.registry.Stopped(requestID) {
			s.sendFrame(w, flusher, map[string]any{"content": "", "stopped": true})
			return
		}
		if streamCtx.Err() != nil {
			// client disconnect, nothing left to write
			return
		}
		s.logger.Error("stream failed", err, map[string]interface{}{"request_id": requestID})
		s.sendFrame(w, flusher, map[string]any{"error": err.Error()})
	}
}

func (s *Server) handleChatStop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RequestID string `json:"request_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RequestID == "" {
		s.writeError(w, http.StatusBadRequest, "request_id required")
		return
	}

	if s.registry.Stop(req.RequestID) {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": fmt.Sprintf("Request %s stopped", req.RequestID),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": false,
		"message": fmt.Sprintf("Request %s not found", req.RequestID),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	database := "ok"

	probeCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.executor.Query(probeCtx, "SELECT 1 AS probe"); err != nil {
		status = "degraded"
		database = "unreachable"
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":          status,
		"database":        database,
		"active_streams":  len(s.semaphore),
		"semaphore_slots": cap(s.semaphore),
	})
}

func (s *Server) decodeChatRequest(w http.ResponseWriter, r *http.Request) (domain.ChatRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return domain.ChatRequest{}, false
	}
	if len(req.Messages) == 0 {
		s.writeError(w, http.StatusBadRequest, "No messages provided")
		return domain.ChatRequest{}, false
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = 4096
	}
	if req.Temperature == 0 {
		req.Temperature = 0.7
	}
	return req, true
}

func (s *Server) sendFrame(w http.ResponseWriter, flusher http.Flusher, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{"detail": message})
}
