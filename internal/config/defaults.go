package config

import "time"

const dataDir = "/usr/local/var/ayuda/data"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.MaxMessageChars == 0 {
		cfg.Server.MaxMessageChars = 2000
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Catalog.Source == "" {
		cfg.Catalog.Source = SourceFile
	}
	if cfg.Catalog.DataPath == "" {
		cfg.Catalog.DataPath = dataDir + "/organizations.csv"
	}
	if cfg.Catalog.EmbeddingsPath == "" {
		cfg.Catalog.EmbeddingsPath = dataDir + "/organizations.npy"
	}
	if cfg.Catalog.DatabasePath == "" {
		cfg.Catalog.DatabasePath = dataDir + "/catalog.db"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = dataDir + "/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.TokenizerPath == "" {
		cfg.Embedding.TokenizerPath = dataDir + "/models/tokenizer.json"
	}
	if cfg.Embedding.OutputName == "" {
		cfg.Embedding.OutputName = "last_hidden_state"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = 5
	}
	if cfg.Search.MinTopK == 0 {
		cfg.Search.MinTopK = 1
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = 20
	}
	if cfg.Harness.ImportTimeout == 0 {
		cfg.Harness.ImportTimeout = 120 * time.Second
	}
	if cfg.Harness.RequestTimeout == 0 {
		cfg.Harness.RequestTimeout = 60 * time.Second
	}
	if cfg.Harness.Workers == 0 {
		cfg.Harness.Workers = 1
	}
	if cfg.Translate.Provider == "" {
		cfg.Translate.Provider = TranslateGlossary
	}
	if cfg.Translate.Timeout == 0 {
		cfg.Translate.Timeout = 15 * time.Second
	}
	if cfg.Translate.MaxRetries == 0 {
		cfg.Translate.MaxRetries = 3
	}
	if cfg.Translate.CacheSize == 0 {
		cfg.Translate.CacheSize = 1000
	}
	if cfg.Translate.CacheTTL == 0 {
		cfg.Translate.CacheTTL = 24 * time.Hour
	}
	if cfg.Entity.DefaultModel == "" {
		cfg.Entity.DefaultModel = "none"
	}
}
