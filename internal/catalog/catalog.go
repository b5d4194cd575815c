// Package catalog holds the immutable organization catalog and its embedding matrix.
package catalog

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrMisaligned is returned when entries and embedding rows do not pair up 1:1.
	ErrMisaligned = errors.New("catalog entries and embeddings are misaligned")
	// ErrNonFinite is returned when an embedding holds NaN or an infinity.
	ErrNonFinite = errors.New("catalog embedding contains a non-finite value")
)

// Entry is one organization. Its position in the catalog is its row in the embedding matrix.
type Entry struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Summary  string `json:"summary"`
	Category string `json:"category"`
}

// Catalog is an ordered, read-only set of entries sharing one row-major
// embedding matrix. It is safe for concurrent reads.
type Catalog struct {
	entries []Entry
	matrix  []float32
	dims    int
}

// New builds a catalog from entries and a row-major matrix with dims columns.
// The slices are copied so later mutation by the caller cannot leak in.
func New(entries []Entry, matrix []float32, dims int) (*Catalog, error) {
	if len(entries) == 0 {
		if len(matrix) != 0 {
			return nil, fmt.Errorf("%w: 0 entries but %d matrix values", ErrMisaligned, len(matrix))
		}
		return &Catalog{dims: dims}, nil
	}
	if dims <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension must be positive, got %d", ErrMisaligned, dims)
	}
	if len(matrix) != len(entries)*dims {
		return nil, fmt.Errorf("%w: %d entries need %d values at dimension %d, got %d",
			ErrMisaligned, len(entries), len(entries)*dims, dims, len(matrix))
	}
	for i, v := range matrix {
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: organization %d (%q), column %d is %v",
				ErrNonFinite, i/dims, entries[i/dims].Name, i%dims, v)
		}
	}
	c := &Catalog{
		entries: make([]Entry, len(entries)),
		matrix:  make([]float32, len(matrix)),
		dims:    dims,
	}
	copy(c.entries, entries)
	copy(c.matrix, matrix)
	return c, nil
}

// FromRows builds a catalog from one vector per entry. Every row must have the same length.
func FromRows(entries []Entry, rows [][]float32) (*Catalog, error) {
	if len(entries) != len(rows) {
		return nil, fmt.Errorf("%w: %d entries, %d embedding rows", ErrMisaligned, len(entries), len(rows))
	}
	if len(rows) == 0 {
		return New(nil, nil, 0)
	}
	dims := len(rows[0])
	matrix := make([]float32, 0, len(rows)*dims)
	for i, row := range rows {
		if len(row) != dims {
			return nil, fmt.Errorf("%w: row %d has dimension %d, expected %d", ErrMisaligned, i, len(row), dims)
		}
		matrix = append(matrix, row...)
	}
	return New(entries, matrix, dims)
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Dims returns the embedding dimension.
func (c *Catalog) Dims() int {
	return c.dims
}

// Entry returns the entry at index i.
func (c *Catalog) Entry(i int) Entry {
	return c.entries[i]
}

// Row returns the embedding of entry i. The slice aliases catalog memory and must not be modified.
func (c *Catalog) Row(i int) []float32 {
	return c.matrix[i*c.dims : (i+1)*c.dims]
}

// Matrix returns the whole row-major matrix. It aliases catalog memory and must not be modified.
func (c *Catalog) Matrix() []float32 {
	return c.matrix
}
