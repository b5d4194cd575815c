// Package storage persists the organization catalog so a server can start without re-reading CSV and NPY files.
package storage

import (
	"context"

	"github.com/hyperjump/ayuda/internal/catalog"
)

// Storage defines catalog persistence operations.
type Storage interface {
	// SaveCatalog replaces the stored catalog with c, preserving entry order.
	SaveCatalog(ctx context.Context, c *catalog.Catalog) error
	// LoadCatalog returns the stored catalog in its original order.
	LoadCatalog(ctx context.Context) (*catalog.Catalog, error)
	// CountEntries returns the number of stored entries.
	CountEntries(ctx context.Context) (int64, error)

	Close() error
}
