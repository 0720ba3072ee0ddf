// Package server exposes the streaming recognizer over HTTP. The request
// body is handed to the recognizer as-is, so a slow client exercises the
// same incremental decode path as any other byte stream.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/nerstream-ai/nerstream/internal/config"
	"github.com/nerstream-ai/nerstream/internal/ner"
	"github.com/nerstream-ai/nerstream/internal/redact"
	"github.com/nerstream-ai/nerstream/internal/telemetry"
)

// Server wraps the HTTP components for nerstream.
type Server struct {
	mux       *http.ServeMux
	cfg       *config.Config
	engine    ner.Extractor
	settings  ner.Settings
	telemetry *telemetry.Provider
}

// New creates a server with all routes registered. The engine must be
// safe for concurrent use; every request builds its own recognizer
// around it.
func New(cfg *config.Config, engine ner.Extractor, tel *telemetry.Provider) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		cfg:       cfg,
		engine:    engine,
		settings:  ner.Settings{MaxContentSizeChars: cfg.Recognition.MaxContentSizeChars},
		telemetry: tel,
	}

	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/v1/entities", s.handleEntities)

	return s
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	log.Printf("nerstream running on %s", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout(),
		IdleTimeout:       s.cfg.Server.IdleTimeout(),
	}
	return srv.ListenAndServe()
}

// Handler returns the route mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "ok")
}

type entitiesResponse struct {
	Entities map[string][]string `json:"entities"`
}

// handleEntities streams the request body through the recognizer.
// Entity types come from the types query parameter (comma-separated,
// default: all configured types); timeout_ms optionally tightens the
// per-request deadline up to the configured maximum.
func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	types, err := s.requestedTypes(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	timeout, err := s.requestTimeout(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	body := r.Body
	if s.cfg.Server.MaxRequestBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxRequestBodyBytes)
	}

	recognizer := ner.NewRecognizer(types, s.settings, s.engine)

	start := time.Now()
	result, stats, err := recognizer.ExtractEntitiesTimed(r.Context(), body, timeout)
	durMs := millis(time.Since(start))
	decodeMs := millis(stats.DecodeDuration)
	extractMs := millis(stats.ExtractDuration)

	if err != nil {
		code := ner.CodeOf(err)
		s.telemetry.RecordRecognition(s.cfg.Engine.Type, string(code), durMs, decodeMs, extractMs)
		redact.Logf("recognition failed code=%s types=%v: %v", code, types.Types(), err)
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "request_too_large", err.Error())
			return
		}
		writeError(w, statusForCode(code), string(code), err.Error())
		return
	}

	s.telemetry.RecordRecognition(s.cfg.Engine.Type, "", durMs, decodeMs, extractMs)

	resp := entitiesResponse{Entities: make(map[string][]string, len(result))}
	for t, matches := range result {
		resp.Entities[string(t)] = matches
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("failed to write entities response: %v", err)
	}
}

func (s *Server) requestedTypes(r *http.Request) (ner.TypeSet, error) {
	raw := r.URL.Query().Get("types")
	if raw == "" {
		return s.cfg.Recognition.EntityTypeSet()
	}
	types, err := ner.ParseTypeSet(raw)
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		return nil, errors.New("types parameter names no entity types")
	}
	return types, nil
}

func (s *Server) requestTimeout(r *http.Request) (time.Duration, error) {
	raw := r.URL.Query().Get("timeout_ms")
	if raw == "" {
		return s.cfg.Recognition.DefaultTimeout(), nil
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("timeout_ms must be a positive integer, got %q", raw)
	}
	timeout := time.Duration(ms) * time.Millisecond
	if timeout > s.cfg.Recognition.MaxTimeout() {
		timeout = s.cfg.Recognition.MaxTimeout()
	}
	return timeout, nil
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

// statusForCode maps recognition error codes onto HTTP statuses. Clients
// branch on the code in the body, not on the message.
func statusForCode(code ner.Code) int {
	switch code {
	case ner.CodeContentTooLarge:
		return http.StatusRequestEntityTooLarge
	case ner.CodeTimeout:
		return http.StatusRequestTimeout
	case ner.CodeInvalidEncoding:
		return http.StatusUnprocessableEntity
	case ner.CodeIOError:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: redact.String(message),
		},
	})
}
