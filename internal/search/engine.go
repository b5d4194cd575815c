// Package search ranks catalog organizations against a processed query.
package search

import (
	"context"

	"github.com/hyperjump/ayuda/internal/catalog"
	"github.com/hyperjump/ayuda/internal/embedding"
	"github.com/hyperjump/ayuda/internal/models"
)

// Processor is satisfied by *query.Processor.
type Processor interface {
	Process(ctx context.Context, text string) *models.QueryRecord
}

// Engine is the loaded search backend: query processing, the encoder and the
// catalog. It is immutable once built and safe for concurrent use.
type Engine struct {
	processor Processor
	encoder   embedding.Embedder
	catalog   *catalog.Catalog
}

// NewEngine assembles an engine. The engine owns encoder and closes it in Close.
func NewEngine(p Processor, encoder embedding.Embedder, cat *catalog.Catalog) *Engine {
	return &Engine{processor: p, encoder: encoder, catalog: cat}
}

// Search processes message and ranks the catalog against its English text.
// topK is clamped to the catalog size.
func (e *Engine) Search(ctx context.Context, message string, topK int) (*models.RankedResult, error) {
	rec := e.processor.Process(ctx, message)
	if topK > e.catalog.Len() {
		topK = e.catalog.Len()
	}
	matches, err := Rank(ctx, e.encoder, rec.Translated, topK, e.catalog)
	if err != nil {
		return nil, err
	}
	return &models.RankedResult{QueryInfo: rec, Results: matches}, nil
}

// CatalogSize is the number of organizations.
func (e *Engine) CatalogSize() int {
	return e.catalog.Len()
}

// Close releases the encoder.
func (e *Engine) Close() error {
	if e.encoder == nil {
		return nil
	}
	return e.encoder.Close()
}
