// Package entity extracts named entities with a model chosen by language.
package entity

import (
	"context"
	"fmt"

	"github.com/hyperjump/ayuda/internal/models"
)

// Model names accepted for the default of languages without a dedicated extractor.
const (
	ModelNone    = "none"
	ModelEnglish = "en"
	ModelSpanish = "es"
)

// Extractor finds entities in text, ordered by position. Duplicates are kept.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]models.Entity, error)
}

// Router picks the extractor for a detected language.
type Router struct {
	models       map[string]Extractor
	defaultModel string
}

// NewRouter uses prose for English, the rule-based recognizer for Spanish and
// defaultModel for every other language.
func NewRouter(defaultModel string) (*Router, error) {
	return NewRouterWith(map[string]Extractor{
		ModelEnglish: NewProseExtractor(),
		ModelSpanish: NewSpanishExtractor(),
	}, defaultModel)
}

// NewRouterWith builds a router over custom extractors keyed by language.
func NewRouterWith(byLang map[string]Extractor, defaultModel string) (*Router, error) {
	if defaultModel == "" {
		defaultModel = ModelNone
	}
	if defaultModel != ModelNone {
		if _, ok := byLang[defaultModel]; !ok {
			return nil, fmt.Errorf("entity: unknown default model %q", defaultModel)
		}
	}
	return &Router{models: byLang, defaultModel: defaultModel}, nil
}

// ModelFor returns the model name used for lang.
func (r *Router) ModelFor(lang string) string {
	if _, ok := r.models[lang]; ok {
		return lang
	}
	return r.defaultModel
}

// Extract runs the model selected for lang. A language routed to ModelNone
// yields no entities. Panics inside an extractor are returned as errors.
func (r *Router) Extract(ctx context.Context, text, lang string) (ents []models.Entity, err error) {
	ex, ok := r.models[r.ModelFor(lang)]
	if !ok {
		return nil, nil
	}
	defer func() {
		if p := recover(); p != nil {
			ents, err = nil, fmt.Errorf("entity extractor panicked: %v", p)
		}
	}()
	return ex.Extract(ctx, text)
}
