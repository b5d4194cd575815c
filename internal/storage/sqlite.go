package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/ayuda/internal/catalog"
)

// SQLiteStorage implements Storage using SQLite. Embeddings are stored as
// little-endian float32 blobs, one row per catalog entry.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS organizations (
		position INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		embedding BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS catalog_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveCatalog replaces all stored organizations in a single transaction.
func (s *SQLiteStorage) SaveCatalog(ctx context.Context, c *catalog.Catalog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM organizations`); err != nil {
		return fmt.Errorf("clear organizations: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO organizations (position, name, url, summary, category, embedding)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < c.Len(); i++ {
		e := c.Entry(i)
		if _, err := stmt.ExecContext(ctx, i, e.Name, e.URL, e.Summary, e.Category, float32SliceToBytes(c.Row(i))); err != nil {
			return fmt.Errorf("insert organization %d: %w", i, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO catalog_meta (key, value) VALUES ('dimensions', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		fmt.Sprint(c.Dims()),
	); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	return tx.Commit()
}

// LoadCatalog reads every organization ordered by position.
func (s *SQLiteStorage) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	dims, err := s.storedDimensions(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, name, url, summary, category, embedding
		 FROM organizations ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("query organizations: %w", err)
	}
	defer rows.Close()

	var (
		entries []catalog.Entry
		vectors [][]float32
	)
	for rows.Next() {
		var (
			position int
			e        catalog.Entry
			blob     []byte
		)
		if err := rows.Scan(&position, &e.Name, &e.URL, &e.Summary, &e.Category, &blob); err != nil {
			return nil, err
		}
		if position != len(entries) {
			return nil, fmt.Errorf("%w: gap in stored positions at %d", catalog.ErrMisaligned, position)
		}
		if len(blob)%4 != 0 {
			return nil, fmt.Errorf("organization %d: embedding blob has %d bytes", position, len(blob))
		}
		vec := bytesToFloat32Slice(blob)
		if dims > 0 && len(vec) != dims {
			return nil, fmt.Errorf("%w: organization %d has dimension %d, catalog has %d",
				catalog.ErrMisaligned, position, len(vec), dims)
		}
		entries = append(entries, e)
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if dims == 0 {
		return catalog.FromRows(entries, vectors)
	}
	matrix := make([]float32, 0, len(vectors)*dims)
	for _, vec := range vectors {
		matrix = append(matrix, vec...)
	}
	return catalog.New(entries, matrix, dims)
}

func (s *SQLiteStorage) storedDimensions(ctx context.Context) (int, error) {
	var dims int
	err := s.db.QueryRowContext(ctx, `SELECT CAST(value AS INTEGER) FROM catalog_meta WHERE key = 'dimensions'`).Scan(&dims)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read dimensions: %w", err)
	}
	return dims, nil
}

// CountEntries returns the number of stored organizations.
func (s *SQLiteStorage) CountEntries(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM organizations`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
