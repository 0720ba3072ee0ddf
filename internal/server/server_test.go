package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nerstream-ai/nerstream/internal/config"
	"github.com/nerstream-ai/nerstream/internal/engine"
	"github.com/nerstream-ai/nerstream/internal/ner"
	"github.com/nerstream-ai/nerstream/internal/telemetry"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load("testdata/does-not-exist.yaml")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Server.Addr = ":0"
	cfg.Recognition.DefaultTimeoutMS = 2000
	cfg.Recognition.MaxTimeoutMS = 5000
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, eng ner.Extractor) *Server {
	t.Helper()

	tel, err := telemetry.NewProvider(context.Background(), telemetry.Config{Enabled: false})
	if err != nil {
		t.Fatalf("telemetry: %v", err)
	}
	return New(cfg, eng, tel)
}

func postEntities(t *testing.T, srv *Server, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestEntitiesEndpointExtracts(t *testing.T) {
	srv := newTestServer(t, newTestConfig(t), engine.NewRules())

	rec := postEntities(t, srv, "/v1/entities?types=person", "My name is Sue Jones.")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Entities map[string][]string `json:"entities"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got := body.Entities["PERSON"]; len(got) != 1 || got[0] != "Sue Jones" {
		t.Fatalf("got %v, want [Sue Jones]", got)
	}
	if len(body.Entities) != 1 {
		t.Fatalf("unrequested types in response: %v", body.Entities)
	}
}

func TestEntitiesEndpointDefaultsToConfiguredTypes(t *testing.T) {
	srv := newTestServer(t, newTestConfig(t), engine.NewRules())

	rec := postEntities(t, srv, "/v1/entities", "nothing interesting here")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Entities map[string][]string `json:"entities"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// All configured types present, each as an empty set.
	for _, typ := range []string{"PERSON", "ORGANIZATION", "LOCATION"} {
		matches, ok := body.Entities[typ]
		if !ok {
			t.Fatalf("type %s missing from response: %v", typ, body.Entities)
		}
		if len(matches) != 0 {
			t.Fatalf("unexpected matches for %s: %v", typ, matches)
		}
	}
}

func TestEntitiesEndpointRejectsBadTypes(t *testing.T) {
	srv := newTestServer(t, newTestConfig(t), engine.NewRules())

	rec := postEntities(t, srv, "/v1/entities?types=accountnumber", "text")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestEntitiesEndpointRejectsGet(t *testing.T) {
	srv := newTestServer(t, newTestConfig(t), engine.NewRules())

	req := httptest.NewRequest(http.MethodGet, "/v1/entities", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status %d, want 405", rec.Code)
	}
}

func TestEntitiesEndpointContentTooLarge(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Recognition.MaxContentSizeChars = 10
	srv := newTestServer(t, cfg, engine.NewRules())

	rec := postEntities(t, srv, "/v1/entities?types=person", "This is some text that is more than 10 chars long.")
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status %d, want 413", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != string(ner.CodeContentTooLarge) {
		t.Fatalf("code %q, want CONTENT_TOO_LARGE", code)
	}
}

func TestEntitiesEndpointTimeout(t *testing.T) {
	eng := engine.NewStatic(map[ner.EntityType][]string{ner.Person: {"Sue Jones"}})
	eng.Delay = 500 * time.Millisecond
	srv := newTestServer(t, newTestConfig(t), eng)

	rec := postEntities(t, srv, "/v1/entities?types=person&timeout_ms=50", "My name is Sue Jones.")
	if rec.Code != http.StatusRequestTimeout {
		t.Fatalf("status %d, want 408", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != string(ner.CodeTimeout) {
		t.Fatalf("code %q, want TIMEOUT", code)
	}
}

func TestEntitiesEndpointBodyLimit(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Server.MaxRequestBodyBytes = 10
	srv := newTestServer(t, cfg, engine.NewRules())

	rec := postEntities(t, srv, "/v1/entities?types=person", strings.Repeat("a", 64))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status %d, want 413", rec.Code)
	}
}

func TestEntitiesEndpointBadTimeout(t *testing.T) {
	srv := newTestServer(t, newTestConfig(t), engine.NewRules())

	rec := postEntities(t, srv, "/v1/entities?types=person&timeout_ms=banana", "text")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, newTestConfig(t), engine.NewRules())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}
