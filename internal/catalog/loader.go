package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrMissingColumn is returned when a required catalog column is absent.
var ErrMissingColumn = errors.New("missing catalog column")

var requiredColumns = []string{"name", "summary"}

// LoadEntries reads catalog rows from a .csv or .xlsx file. The first row is a
// header; columns Name, URL, Summary and Category are matched case-insensitively.
// Name and Summary are required; missing cells become empty strings.
func LoadEntries(path string) ([]Entry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return loadXLSX(path)
	case ".csv", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open catalog: %w", err)
		}
		defer f.Close()
		return ReadCSV(f)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q (supported: .csv, .xlsx)", filepath.Ext(path))
	}
}

// ReadCSV reads catalog rows from CSV data.
func ReadCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("catalog is empty: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog line %d: %w", line, err)
		}
		entries = append(entries, cols.entry(record))
	}
	return entries, nil
}

func loadXLSX(path string) ([]Entry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open Excel catalog: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel catalog %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("catalog is empty: no header row")
	}
	cols, err := columnIndex(rows[0])
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		entries = append(entries, cols.entry(row))
	}
	return entries, nil
}

type columns struct {
	name, url, summary, category int
}

func columnIndex(header []string) (columns, error) {
	idx := map[string]int{}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			return columns{}, fmt.Errorf("%w: %q", ErrMissingColumn, c)
		}
	}
	lookup := func(name string) int {
		if i, ok := idx[name]; ok {
			return i
		}
		return -1
	}
	return columns{
		name:     lookup("name"),
		url:      lookup("url"),
		summary:  lookup("summary"),
		category: lookup("category"),
	}, nil
}

func (c columns) entry(record []string) Entry {
	cell := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	return Entry{
		Name:     cell(c.name),
		URL:      cell(c.url),
		Summary:  cell(c.summary),
		Category: cell(c.category),
	}
}

// LoadFiles loads entries from dataPath and the embedding matrix from
// embeddingsPath (.npy) and pairs them positionally.
func LoadFiles(dataPath, embeddingsPath string) (*Catalog, error) {
	entries, err := LoadEntries(dataPath)
	if err != nil {
		return nil, err
	}
	matrix, rows, dims, err := ReadNPYFile(embeddingsPath)
	if err != nil {
		return nil, err
	}
	if rows != len(entries) {
		return nil, fmt.Errorf("%w: %s has %d rows, %s has %d embeddings",
			ErrMisaligned, dataPath, len(entries), embeddingsPath, rows)
	}
	return New(entries, matrix, dims)
}
