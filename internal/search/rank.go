package search

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/hyperjump/ayuda/internal/catalog"
	"github.com/hyperjump/ayuda/internal/models"
	"github.com/hyperjump/ayuda/internal/vector"
)

var (
	// ErrTopKOutOfRange is returned by Rank when topK is outside [1, catalog size].
	ErrTopKOutOfRange = models.ErrTopKOutOfRange
	// ErrDimensionMismatch means the encoder and the catalog embeddings disagree.
	ErrDimensionMismatch = errors.New("query embedding dimension does not match catalog")
	// ErrNonFiniteQuery means the encoder produced NaN or an infinity.
	ErrNonFiniteQuery = errors.New("query embedding contains a non-finite value")
)

// Encoder embeds text into the catalog's vector space.
type Encoder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Rank encodes text and returns the topK catalog entries by cosine similarity,
// highest first, ties going to the lower catalog index. Rank does not clamp:
// topK must be in [1, cat.Len()]. An empty catalog yields no matches.
func Rank(ctx context.Context, enc Encoder, text string, topK int, cat *catalog.Catalog) ([]models.Match, error) {
	if cat.Len() == 0 {
		return []models.Match{}, nil
	}
	if topK < 1 || topK > cat.Len() {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrTopKOutOfRange, topK, cat.Len())
	}
	query, err := enc.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(query) != cat.Dims() {
		return nil, fmt.Errorf("%w: got %d, catalog has %d", ErrDimensionMismatch, len(query), cat.Dims())
	}
	for i, v := range query {
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: component %d is %v", ErrNonFiniteQuery, i, v)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores := vector.CosineRows(query, cat.Matrix(), cat.Dims())
	top := vector.TopK(scores, topK)
	matches := make([]models.Match, len(top))
	for i, s := range top {
		e := cat.Entry(s.Index)
		matches[i] = models.Match{
			Name:     e.Name,
			URL:      e.URL,
			Summary:  e.Summary,
			Category: e.Category,
			Score:    s.Score,
		}
	}
	return matches, nil
}
