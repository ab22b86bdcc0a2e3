// Package features turns graphs into binary feature vectors over a feature
// set and persists the resulting matrices.
package features

import (
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// ErrMalformedMatrix is returned when a persisted matrix cannot be decoded
// or holds a value other than 0 or 1.
var ErrMalformedMatrix = errors.New("malformed feature matrix")

// Matrix is a dense row-major 0/1 matrix: one row per graph, one column per
// feature. The shape is explicit, so empty matrices keep their dimensions.
type Matrix struct {
	rows int
	cols int
	data []uint8
}

// NewMatrix returns a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("features: negative dimension %dx%d", rows, cols))
	}
	return &Matrix{rows: rows, cols: cols, data: make([]uint8, rows*cols)}
}

// FromRows builds a matrix from row slices, which must all have the same
// length and hold only 0 or 1.
func FromRows(rows [][]uint8) (*Matrix, error) {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	m := NewMatrix(len(rows), cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrMalformedMatrix, i, len(row), cols)
		}
		for j, v := range row {
			if v > 1 {
				return nil, fmt.Errorf("%w: value %d at (%d,%d)", ErrMalformedMatrix, v, i, j)
			}
		}
		copy(m.Row(i), row)
	}
	return m, nil
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (rows, cols int) {
	return m.rows, m.cols
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int {
	return m.rows
}

// Cols returns the number of columns.
func (m *Matrix) Cols() int {
	return m.cols
}

// At returns the value at (i, j).
func (m *Matrix) At(i, j int) uint8 {
	return m.data[i*m.cols+j]
}

// Set stores v at (i, j).
func (m *Matrix) Set(i, j int, v uint8) {
	m.data[i*m.cols+j] = v
}

// Row returns row i as a slice backed by the matrix.
func (m *Matrix) Row(i int) []uint8 {
	return m.data[i*m.cols : (i+1)*m.cols : (i+1)*m.cols]
}

// Equal reports whether both matrices have the same shape and values.
func (m *Matrix) Equal(other *Matrix) bool {
	return m.rows == other.rows && m.cols == other.cols && slices.Equal(m.data, other.data)
}

// Dense converts the matrix to a gonum Dense matrix. It returns nil for a
// matrix with no cells, which gonum cannot represent.
func (m *Matrix) Dense() *mat.Dense {
	if m.rows == 0 || m.cols == 0 {
		return nil
	}
	values := make([]float64, len(m.data))
	for i, v := range m.data {
		values[i] = float64(v)
	}
	return mat.NewDense(m.rows, m.cols, values)
}

// FromDense converts a gonum matrix holding only 0 and 1 values.
func FromDense(d mat.Matrix) (*Matrix, error) {
	r, c := d.Dims()
	m := NewMatrix(r, c)
	for i := range r {
		for j := range c {
			switch v := d.At(i, j); v {
			case 0:
			case 1:
				m.Set(i, j, 1)
			default:
				return nil, fmt.Errorf("%w: value %g at (%d,%d)", ErrMalformedMatrix, v, i, j)
			}
		}
	}
	return m, nil
}
