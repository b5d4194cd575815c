package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/ayuda/internal/chat"
	"github.com/hyperjump/ayuda/internal/config"
	"github.com/hyperjump/ayuda/internal/harness"
	"github.com/hyperjump/ayuda/internal/metrics"
	"github.com/hyperjump/ayuda/internal/models"
)

type mockChat struct {
	res    *models.RankedResult
	err    error
	health chat.Health
	got    models.ChatRequest
}

func (m *mockChat) Chat(_ context.Context, req models.ChatRequest) (*models.RankedResult, error) {
	m.got = req
	return m.res, m.err
}

func (m *mockChat) Health() chat.Health { return m.health }

func (m *mockChat) RequestTimeout() time.Duration { return 60 * time.Second }

func newTestServer(svc ChatService) *Server {
	return NewServer(svc, metrics.New(), &config.ServerConfig{Host: "localhost", Port: 8000, CORSOrigins: []string{"*"}}, nil)
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeDetail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out.Detail
}

func TestHandleChat_ok(t *testing.T) {
	svc := &mockChat{res: &models.RankedResult{
		QueryInfo: &models.QueryRecord{Original: "hola", Language: "es", Translated: "hello", Intent: models.IntentUnknown, Entities: []models.Entity{}},
		Results:   []models.Match{{Name: "Banco de Alimentos", Score: 0.9}},
	}}
	w := doRequest(t, newTestServer(svc).Router(), http.MethodPost, "/api/chat", `{"message":"hola","top_k":3}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	if svc.got.Message != "hola" || svc.got.TopK == nil || *svc.got.TopK != 3 {
		t.Errorf("request not forwarded: %+v", svc.got)
	}
	var out map[string]json.RawMessage
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if _, ok := out["query_info"]; !ok {
		t.Errorf("missing query_info: %v", out)
	}
	if _, ok := out["results"]; !ok {
		t.Errorf("missing results: %v", out)
	}
}

func TestHandleChat_errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"invalid json", `{"message":`, nil, http.StatusBadRequest, "invalid request body"},
		{"wrong type", `{"message":42}`, nil, http.StatusBadRequest, "Invalid message type"},
		{"non-integer top_k", `{"message":"hi","top_k":"three"}`, nil, http.StatusBadRequest, "Invalid top_k type"},
		{"fractional top_k", `{"message":"hi","top_k":2.5}`, nil, http.StatusBadRequest, "Invalid top_k type"},
		{"body not an object", `["hi"]`, nil, http.StatusBadRequest, "invalid request body"},
		{"validation", `{"message":""}`, &models.ValidationError{Err: models.ErrEmptyMessage, Detail: "Empty message"},
			http.StatusBadRequest, "Empty message"},
		{"unavailable", `{"message":"hi"}`, &harness.UnavailableError{Cause: errors.New("catalog missing")},
			http.StatusServiceUnavailable, "Search backend not available: catalog missing"},
		{"load timeout", `{"message":"hi"}`, &harness.UnavailableError{Cause: &harness.TimeoutError{Op: "backend load", Deadline: 2 * time.Second}},
			http.StatusServiceUnavailable, "Search backend not available: backend load timed out after 2s"},
		{"search timeout", `{"message":"hi"}`, &harness.TimeoutError{Op: "search", Deadline: 60 * time.Second},
			http.StatusGatewayTimeout, "Search timed out after 60 seconds"},
		{"internal", `{"message":"hi"}`, errors.New("boom"), http.StatusInternalServerError, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockChat{err: tt.err}
			w := doRequest(t, newTestServer(svc).Router(), http.MethodPost, "/api/chat", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", w.Code, tt.wantStatus)
			}
			if got := decodeDetail(t, w); got != tt.wantDetail {
				t.Errorf("detail: got %q, want %q", got, tt.wantDetail)
			}
		})
	}
}

func TestHandleChat_bodyTooLarge(t *testing.T) {
	body := `{"message":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	w := doRequest(t, newTestServer(&mockChat{}).Router(), http.MethodPost, "/api/chat", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	msg := "backend load timed out after 2m0s"
	svc := &mockChat{health: chat.Health{Status: "ok", BackendState: "UNLOADED", ImportError: &msg}}
	w := doRequest(t, newTestServer(svc).Router(), http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["status"] != "ok" || out["backend_loaded"] != false || out["import_error"] != msg {
		t.Errorf("unexpected health: %v", out)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	w := doRequest(t, newTestServer(&mockChat{}).Router(), http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("expected go collector output")
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(&mockChat{}).Router()
	r := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	r.Header.Set("Origin", "http://example.org")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("expected Access-Control-Allow-Origin header")
	}
}

type staticSearcher struct{}

func (staticSearcher) Search(_ context.Context, message string, topK int) (*models.RankedResult, error) {
	res := &models.RankedResult{QueryInfo: &models.QueryRecord{Original: message, Language: "en", Translated: message, Intent: "food", Entities: []models.Entity{}}}
	for i := 0; i < topK; i++ {
		res.Results = append(res.Results, models.Match{Name: "org", Score: 1})
	}
	return res, nil
}

func (staticSearcher) CatalogSize() int { return 2 }

func TestChatEndToEnd(t *testing.T) {
	backend, err := harness.NewBackend(func(context.Context) (chat.Searcher, error) {
		return staticSearcher{}, nil
	}, harness.BackendOptions{})
	if err != nil {
		t.Fatal(err)
	}
	svc, err := chat.NewService(backend, chat.Options{
		Limits:         models.Limits{MaxMessageChars: 2000, DefaultTopK: 5, MinTopK: 1, MaxTopK: 20},
		ImportTimeout:  time.Second,
		RequestTimeout: time.Second,
		Workers:        1,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Close()

	h := newTestServer(svc).Router()
	w := doRequest(t, h, http.MethodPost, "/api/chat", `{"message":"food please","top_k":10}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var out models.RankedResult
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 2 {
		t.Errorf("results: got %d, want clamp to catalog size 2", len(out.Results))
	}

	w = doRequest(t, h, http.MethodPost, "/api/chat", `{"message":"hi","top_k":0}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("top_k 0: got %d, want 400", w.Code)
	}
}
