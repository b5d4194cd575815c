// Package main is the ayuda CLI entry point.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/ayuda/internal/catalog"
	"github.com/hyperjump/ayuda/internal/chat"
	"github.com/hyperjump/ayuda/internal/cli"
	"github.com/hyperjump/ayuda/internal/config"
	"github.com/hyperjump/ayuda/internal/embedding"
	"github.com/hyperjump/ayuda/internal/models"
	"github.com/hyperjump/ayuda/internal/server"
	"github.com/hyperjump/ayuda/internal/storage"
	"github.com/hyperjump/ayuda/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/ayuda/config.yaml"
	defaultServerURL  = "http://localhost:8000"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// When neither exists the built-in defaults are returned.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cwd, _ := os.Getwd()
			return config.Default(cwd), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "import":
		runImport()
	case "embed":
		runEmbed()
	case "health":
		runHealth()
	case "version", "--version", "-v":
		fmt.Printf("ayuda version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// mustSetup loads the config and builds the logger, exiting on failure.
func mustSetup(configPath string, debug bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if debug {
		cfg.Debug = true
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := mustSetup(*configPath, *debug)
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	// The API comes up immediately; the backend loads in the background and
	// requests arriving before it is ready join the same load.
	warmCtx, warmCancel := context.WithCancel(context.Background())
	defer warmCancel()
	go func() {
		if err := components.Chat.Warmup(warmCtx); err == nil {
			logger.Info("search backend ready")
		}
	}()

	srv := server.NewServer(components.Chat, components.Metrics, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	warmCancel()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = srv.Stop(ctx)
}

// argsReorder moves flags that follow the question to the front so the flag
// package sees them.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func isExitCommand(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exit", "quit":
		return true
	}
	return false
}

type askFunc func(ctx context.Context, req models.ChatRequest) (*models.RankedResult, error)

// prompt reads questions from in until EOF or exit/quit and writes each answer to out.
// A failed question is reported and the loop continues.
func prompt(ctx context.Context, in io.Reader, out io.Writer, ask askFunc, topK *int, format cli.OutputFormat) error {
	fmt.Fprintln(out, "Multilingual Nonprofit Finder (type 'exit' to quit)")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nYour question: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()
		if isExitCommand(line) {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		res, err := ask(ctx, models.ChatRequest{Message: line, TopK: topK})
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		if err := cli.WriteResults(out, res, format); err != nil {
			return err
		}
	}
}

func printAskUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: ayuda ask [flags] [question]\n\n")
	fmt.Fprintf(fs.Output(), "With a question, answers it and exits. Without one, starts an interactive prompt.\n\n")
	fs.PrintDefaults()
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (local mode)")
	serverURL := fs.String("server", "", "server URL; empty answers locally")
	topK := fs.Int("top-k", 0, "number of matches (0 = server default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printAskUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	var k *int
	if *topK != 0 {
		k = topK
	}

	var ask askFunc
	if *serverURL != "" {
		ask = func(ctx context.Context, req models.ChatRequest) (*models.RankedResult, error) {
			return chatViaHTTP(ctx, *serverURL, req)
		}
	} else {
		cfg, _, logger := mustSetup(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		ask = components.Chat.Chat
	}

	ctx := context.Background()
	if question := buildQuestion(fs.Args()); question != "" {
		res, err := ask(ctx, models.ChatRequest{Message: question, TopK: k})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteResults(os.Stdout, res, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := prompt(ctx, os.Stdin, os.Stdout, ask, k, format); err != nil {
		fmt.Fprintf(os.Stderr, "Prompt failed: %v\n", err)
		os.Exit(1)
	}
}

// apiError is the error body returned by the server.
type apiError struct {
	Status int
	Detail string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Detail)
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Detail string `json:"detail"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Detail == "" {
		body.Detail = http.StatusText(resp.StatusCode)
	}
	return &apiError{Status: resp.StatusCode, Detail: body.Detail}
}

func chatViaHTTP(ctx context.Context, serverURL string, req models.ChatRequest) (*models.RankedResult, error) {
	u, err := url.JoinPath(serverURL, "/api/chat")
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	var res models.RankedResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &res, nil
}

func healthViaHTTP(ctx context.Context, serverURL string) (*chat.Health, error) {
	u, err := url.JoinPath(serverURL, "/api/health")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	var h chat.Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &h, nil
}

func writeHealth(w io.Writer, h *chat.Health, format cli.OutputFormat) error {
	if format == cli.OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(h)
	}
	fmt.Fprintf(w, "status:          %s\n", h.Status)
	fmt.Fprintf(w, "backend_loaded:  %t\n", h.BackendLoaded)
	fmt.Fprintf(w, "backend_state:   %s\n", h.BackendState)
	fmt.Fprintf(w, "catalog_size:    %d\n", h.CatalogSize)
	if h.ImportError != nil {
		fmt.Fprintf(w, "import_error:    %s\n", *h.ImportError)
	}
	return nil
}

func runHealth() {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	timeout := fs.Duration("timeout", 5*time.Second, "request timeout")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	h, err := healthViaHTTP(ctx, *serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health failed: %v\n", err)
		os.Exit(1)
	}
	if err := writeHealth(os.Stdout, h, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// importCatalog pairs the table at dataPath with the matrix at embeddingsPath
// and writes them into the SQLite database at dbPath, replacing its contents.
func importCatalog(ctx context.Context, dataPath, embeddingsPath, dbPath string) (int, error) {
	cat, err := catalog.LoadFiles(dataPath, embeddingsPath)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return 0, fmt.Errorf("create database directory: %w", err)
	}
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return 0, err
	}
	defer store.Close()
	if err := store.SaveCatalog(ctx, cat); err != nil {
		return 0, err
	}
	n, err := store.CountEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("count stored organizations: %w", err)
	}
	return int(n), nil
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dataPath := fs.String("data", "", "CSV or XLSX organization table (default: catalog.data_path)")
	embeddingsPath := fs.String("embeddings", "", ".npy embedding matrix (default: catalog.embeddings_path)")
	dbPath := fs.String("db", "", "SQLite catalog database (default: catalog.database_path)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := mustSetup(*configPath, false)
	defer logger.Sync()
	if *dataPath == "" {
		*dataPath = cfg.Catalog.DataPath
	}
	if *embeddingsPath == "" {
		*embeddingsPath = cfg.Catalog.EmbeddingsPath
	}
	if *dbPath == "" {
		*dbPath = cfg.Catalog.DatabasePath
	}

	n, err := importCatalog(context.Background(), *dataPath, *embeddingsPath, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Imported %d organizations into %s\n", n, *dbPath)
	if size, err := storage.DatabaseSizeBytes(*dbPath); err == nil {
		fmt.Printf("disk_usage_bytes: %d\n", size)
	}
}

// embedCatalog encodes every summary of the table at dataPath and writes the
// matrix for it to outPath.
func embedCatalog(ctx context.Context, enc embedding.Embedder, dataPath, outPath string) (int, error) {
	entries, err := catalog.LoadEntries(dataPath)
	if err != nil {
		return 0, err
	}
	summaries := make([]string, len(entries))
	for i, e := range entries {
		summaries[i] = e.Summary
	}
	rows, err := enc.EmbedBatch(ctx, summaries)
	if err != nil {
		return 0, fmt.Errorf("embed summaries: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return 0, err
	}
	if err := catalog.WriteNPY(f, rows); err != nil {
		f.Close()
		return 0, err
	}
	return len(rows), f.Close()
}

func runEmbed() {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dataPath := fs.String("data", "", "CSV or XLSX organization table (default: catalog.data_path)")
	outPath := fs.String("out", "", "output .npy path (default: catalog.embeddings_path)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := mustSetup(*configPath, false)
	defer logger.Sync()
	if *dataPath == "" {
		*dataPath = cfg.Catalog.DataPath
	}
	if *outPath == "" {
		*outPath = cfg.Catalog.EmbeddingsPath
	}

	enc, err := embedding.New(embeddingOptions(&cfg.Embedding))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize encoder: %v\n", err)
		os.Exit(1)
	}
	defer enc.Close()

	began := time.Now()
	n, err := embedCatalog(context.Background(), enc, *dataPath, *outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embed failed: %v\n", err)
		os.Exit(1)
	}
	logger.Info("embeddings written",
		zap.Int("rows", n),
		zap.Int("dimensions", enc.Dimensions()),
		zap.String("path", *outPath),
		zap.Duration("elapsed", time.Since(began)),
	)
	fmt.Printf("Wrote %d embeddings to %s\n", n, *outPath)
}

func printUsage() {
	fmt.Println(`ayuda - Multilingual nonprofit finder

Usage:
  ayuda server [flags]            Start the HTTP server
  ayuda ask [flags] [question]    Ask a question (interactive without a question)
  ayuda import [flags]            Build a SQLite catalog from a table and embeddings
  ayuda embed [flags]             Encode catalog summaries into a .npy matrix
  ayuda health [flags]            Show backend readiness of a running server
  ayuda version                   Show version
  ayuda help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/ayuda/config.yaml)
  --debug            Enable debug logging

Ask Flags:
  --config string    Config file path (local mode)
  --server string    Server URL; empty answers locally with the configured catalog
  --top-k int        Number of matches (default from config)
  --output string    Output format: text or json (default: text)

Import Flags:
  --data string        CSV or XLSX table (default: catalog.data_path)
  --embeddings string  .npy matrix (default: catalog.embeddings_path)
  --db string          SQLite database (default: catalog.database_path)

Embed Flags:
  --data string      CSV or XLSX table (default: catalog.data_path)
  --out string       Output .npy path (default: catalog.embeddings_path)

Health Flags:
  --server string    Server URL (default: http://localhost:8000)
  --output string    Output format: text or json (default: text)

Examples:
  ayuda server
  ayuda ask "¿Dónde puedo encontrar un banco de comida cerca de mí?"
  ayuda ask --server http://localhost:8000 --top-k 3 "I need help paying rent"
  ayuda ask --output json "job training"
  ayuda import --data orgs.xlsx --embeddings orgs.npy
  ayuda health --output json`)
}
