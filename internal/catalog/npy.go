package catalog

import (
	"fmt"
	"io"
	"os"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// ReadNPYFile reads a 2-D float32 or float64 .npy matrix and returns it row-major as float32.
func ReadNPYFile(path string) (matrix []float32, rows, dims int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("open embeddings: %w", err)
	}
	defer f.Close()
	return ReadNPY(f)
}

// ReadNPY reads a 2-D float32 or float64 .npy matrix from r.
func ReadNPY(r io.Reader) (matrix []float32, rows, dims int, err error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read npy header: %w", err)
	}
	descr := nr.Header.Descr
	if descr.Fortran {
		return nil, 0, 0, fmt.Errorf("fortran-ordered npy arrays are not supported")
	}
	if len(descr.Shape) != 2 {
		return nil, 0, 0, fmt.Errorf("embeddings must be a 2-D matrix, got shape %v", descr.Shape)
	}
	rows, dims = descr.Shape[0], descr.Shape[1]
	n := rows * dims

	switch descr.Type {
	case "<f4", "f4":
		matrix = make([]float32, n)
		if err := nr.Read(&matrix); err != nil {
			return nil, 0, 0, fmt.Errorf("read npy data: %w", err)
		}
	case "<f8", "f8":
		wide := make([]float64, n)
		if err := nr.Read(&wide); err != nil {
			return nil, 0, 0, fmt.Errorf("read npy data: %w", err)
		}
		matrix = make([]float32, n)
		for i, v := range wide {
			matrix[i] = float32(v)
		}
	default:
		return nil, 0, 0, fmt.Errorf("unsupported npy dtype %q (want float32 or float64)", descr.Type)
	}
	return matrix, rows, dims, nil
}

// WriteNPY writes rows as a 2-D float64 .npy matrix.
func WriteNPY(w io.Writer, rows [][]float32) error {
	if len(rows) == 0 {
		return fmt.Errorf("no embeddings to write")
	}
	dims := len(rows[0])
	data := make([]float64, 0, len(rows)*dims)
	for i, row := range rows {
		if len(row) != dims {
			return fmt.Errorf("row %d has dimension %d, expected %d", i, len(row), dims)
		}
		for _, v := range row {
			data = append(data, float64(v))
		}
	}
	return npyio.Write(w, mat.NewDense(len(rows), dims, data))
}
