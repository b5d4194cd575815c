package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/ayuda/internal/chat"
	"github.com/hyperjump/ayuda/internal/cli"
	"github.com/hyperjump/ayuda/internal/config"
	"github.com/hyperjump/ayuda/internal/embedding"
	"github.com/hyperjump/ayuda/internal/models"
	"github.com/hyperjump/ayuda/internal/storage"
)

const testCSV = "Name,URL,Summary,Category\n" +
	"City Food Bank,https://food.example.org,Community food bank with free groceries,Food\n" +
	"Safe Harbor,https://shelter.example.org,Emergency shelter beds for families,Housing\n" +
	"Career Path,https://jobs.example.org,Career coaching and resume workshops,Employment\n"

// writeCatalog writes the CSV and a hash-embedded .npy next to it.
func writeCatalog(t *testing.T, dir string) (csvPath, npyPath string) {
	t.Helper()
	csvPath = filepath.Join(dir, "orgs.csv")
	npyPath = filepath.Join(dir, "orgs.npy")
	if err := os.WriteFile(csvPath, []byte(testCSV), 0600); err != nil {
		t.Fatal(err)
	}
	n, err := embedCatalog(context.Background(), embedding.NewHashEmbedder(384), csvPath, npyPath)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("embedded %d rows, want 3", n)
	}
	return csvPath, npyPath
}

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{"flags after question are moved first", []string{"food bank", "-top-k", "3"}, []string{"-top-k", "3", "food bank"}},
		{"flags first returns unchanged", []string{"-top-k", "3", "food bank"}, []string{"-top-k", "3", "food bank"}},
		{"question only returns unchanged", []string{"food bank"}, []string{"food bank"}},
		{"empty args returns unchanged", []string{}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := argsReorder(tt.args); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildQuestion(t *testing.T) {
	tests := []struct {
		args     []string
		expected string
	}{
		{[]string{"necesito", "comida"}, "necesito comida"},
		{[]string{"necesito comida"}, "necesito comida"},
		{[]string{}, ""},
		{[]string{"  ", " "}, ""},
	}
	for _, tt := range tests {
		if got := buildQuestion(tt.args); got != tt.expected {
			t.Errorf("buildQuestion(%v) = %q, want %q", tt.args, got, tt.expected)
		}
	}
}

func TestIsExitCommand(t *testing.T) {
	for _, s := range []string{"exit", "quit", " EXIT ", "Quit"} {
		if !isExitCommand(s) {
			t.Errorf("isExitCommand(%q) = false", s)
		}
	}
	for _, s := range []string{"", "exit now", "salir"} {
		if isExitCommand(s) {
			t.Errorf("isExitCommand(%q) = true", s)
		}
	}
}

func TestPrompt(t *testing.T) {
	var asked []string
	ask := func(_ context.Context, req models.ChatRequest) (*models.RankedResult, error) {
		asked = append(asked, req.Message)
		if req.Message == "fail" {
			return nil, errors.New("backend down")
		}
		return &models.RankedResult{
			QueryInfo: &models.QueryRecord{Original: req.Message, Translated: req.Message, Language: "en", Intent: "food"},
			Results:   []models.Match{{Name: "City Food Bank", Score: 0.9}},
		}, nil
	}
	in := strings.NewReader("food please\n\nfail\nquit\nnever asked\n")
	var out bytes.Buffer
	if err := prompt(context.Background(), in, &out, ask, nil, cli.OutputText); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(asked, []string{"food please", "fail"}) {
		t.Errorf("asked = %v", asked)
	}
	for _, want := range []string{"Name: City Food Bank", "Error: backend down", "Goodbye!"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestPrompt_EOF(t *testing.T) {
	var out bytes.Buffer
	ask := func(context.Context, models.ChatRequest) (*models.RankedResult, error) {
		t.Fatal("ask should not be called")
		return nil, nil
	}
	if err := prompt(context.Background(), strings.NewReader(""), &out, ask, nil, cli.OutputText); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("debug: true\nserver:\n  port: 8123\n"), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if !cfg.Debug || cfg.Server.Port != 8123 {
		t.Errorf("cwd config not used: debug=%t port=%d", cfg.Debug, cfg.Server.Port)
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("server:\n  host: \"127.0.0.1\"\n  port: 9000\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if _, _, err := loadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("explicit missing path should fail")
	}
}

func TestImportCatalog(t *testing.T) {
	dir := t.TempDir()
	csvPath, npyPath := writeCatalog(t, dir)
	dbPath := filepath.Join(dir, "db", "catalog.db")

	n, err := importCatalog(context.Background(), csvPath, npyPath, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("imported %d, want 3", n)
	}
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	cat, err := store.LoadCatalog(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cat.Len() != 3 || cat.Dims() != 384 || cat.Entry(2).Name != "Career Path" {
		t.Errorf("unexpected catalog: len=%d dims=%d", cat.Len(), cat.Dims())
	}
}

func testConfig(t *testing.T, dir, source string) *config.Config {
	t.Helper()
	content := `
catalog:
  source: ` + source + `
  data_path: "./orgs.csv"
  embeddings_path: "./orgs.npy"
  database_path: "./catalog.db"
embedding:
  provider: hash
  dimensions: 384
language:
  allowed: [en, es]
harness:
  import_timeout: 10s
  request_timeout: 10s
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestInitializeComponents_SpanishFoodBank(t *testing.T) {
	for _, source := range []string{config.SourceFile, config.SourceSQLite} {
		t.Run(source, func(t *testing.T) {
			dir := t.TempDir()
			csvPath, npyPath := writeCatalog(t, dir)
			if source == config.SourceSQLite {
				if _, err := importCatalog(context.Background(), csvPath, npyPath, filepath.Join(dir, "catalog.db")); err != nil {
					t.Fatal(err)
				}
			}
			cfg := testConfig(t, dir, source)

			comps, err := initializeComponents(cfg, nil)
			if err != nil {
				t.Fatal(err)
			}
			defer comps.Close()

			if h := comps.Chat.Health(); h.BackendLoaded {
				t.Error("backend should load lazily")
			}
			res, err := comps.Chat.Chat(context.Background(), models.ChatRequest{
				Message: "¿Dónde puedo encontrar un banco de comida cerca de mí?",
			})
			if err != nil {
				t.Fatal(err)
			}
			q := res.QueryInfo
			if q.Language != "es" || q.Intent != "food" || q.Translated != "where can I find a food bank near me?" {
				t.Errorf("unexpected query info: %+v", q)
			}
			if len(res.Results) != 3 {
				t.Fatalf("results: got %d, want 3 (default top_k clamped)", len(res.Results))
			}
			if res.Results[0].Name != "City Food Bank" {
				t.Errorf("top match = %q, want City Food Bank", res.Results[0].Name)
			}
			if h := comps.Chat.Health(); !h.BackendLoaded || h.CatalogSize != 3 || h.ImportError != nil {
				t.Errorf("unexpected health after load: %+v", h)
			}
		})
	}
}

func TestInitializeComponents_MissingCatalogIsUnavailable(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir, config.SourceFile)
	comps, err := initializeComponents(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer comps.Close()

	_, err = comps.Chat.Chat(context.Background(), models.ChatRequest{Message: "food"})
	if err == nil {
		t.Fatal("expected error for missing catalog")
	}
	if h := comps.Chat.Health(); h.BackendLoaded || h.ImportError == nil {
		t.Errorf("health should report the import error: %+v", h)
	}
}

func TestChatViaHTTP(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if req.Message == "down" {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"detail":"Search backend not available: no catalog"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(models.RankedResult{
			QueryInfo: &models.QueryRecord{Original: req.Message, Entities: []models.Entity{{Text: "Madrid", Label: "LOC"}}},
			Results:   []models.Match{{Name: "City Food Bank", Score: 0.7}},
		})
	}))
	defer ts.Close()

	res, err := chatViaHTTP(context.Background(), ts.URL, models.ChatRequest{Message: "food"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Results[0].Name != "City Food Bank" || res.QueryInfo.Entities[0].Label != "LOC" {
		t.Errorf("unexpected result: %+v", res)
	}

	_, err = chatViaHTTP(context.Background(), ts.URL, models.ChatRequest{Message: "down"})
	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusServiceUnavailable ||
		apiErr.Detail != "Search backend not available: no catalog" {
		t.Errorf("err = %v, want 503 apiError", err)
	}
}

func TestHealthViaHTTP(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(chat.Health{Status: "ok", BackendLoaded: true, BackendState: "LOADED", CatalogSize: 37})
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h, err := healthViaHTTP(ctx, ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := writeHealth(&out, h, cli.OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "catalog_size:    37") || strings.Contains(out.String(), "import_error") {
		t.Errorf("unexpected health output:\n%s", out.String())
	}
}
