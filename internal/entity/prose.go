package entity

import (
	"context"
	"fmt"

	"github.com/jdkato/prose/v2"

	"github.com/hyperjump/ayuda/internal/models"
)

// ProseExtractor runs the English NER model bundled with prose. The model is
// built once in NewProseExtractor and shared by every call.
type ProseExtractor struct {
	model *prose.Model
}

// NewProseExtractor builds the tagger and NER model.
func NewProseExtractor() *ProseExtractor {
	doc, err := prose.NewDocument("", prose.WithSegmentation(false))
	if err != nil {
		// Extract falls back to building the model per call.
		return &ProseExtractor{}
	}
	return &ProseExtractor{model: doc.Model}
}

// Extract implements Extractor.
func (p *ProseExtractor) Extract(ctx context.Context, text string) ([]models.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := []prose.DocOpt{prose.WithSegmentation(false)}
	if p.model != nil {
		opts = append(opts, prose.UsingModel(p.model))
	}
	doc, err := prose.NewDocument(text, opts...)
	if err != nil {
		return nil, fmt.Errorf("prose: %w", err)
	}
	found := doc.Entities()
	ents := make([]models.Entity, 0, len(found))
	for _, e := range found {
		ents = append(ents, models.Entity{Text: e.Text, Label: e.Label})
	}
	return ents, nil
}
