package features

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Binary layout:
//
//	0 - 3   magic "SGFM"
//	4 - 11  rows (uint64, little endian)
//	12 - 19 cols (uint64, little endian)
//	20 - .. gonum mat.Dense binary form, present only when rows*cols > 0
var magic = [4]byte{'S', 'G', 'F', 'M'}

const headerSize = 20

// WriteBinary writes m in binary form.
func WriteBinary(w io.Writer, m *Matrix) error {
	var header [headerSize]byte
	copy(header[:4], magic[:])
	binary.LittleEndian.PutUint64(header[4:12], uint64(m.rows))
	binary.LittleEndian.PutUint64(header[12:20], uint64(m.cols))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("writing matrix header: %w", err)
	}

	dense := m.Dense()
	if dense == nil {
		return nil
	}
	if _, err := dense.MarshalBinaryTo(w); err != nil {
		return fmt.Errorf("writing matrix data: %w", err)
	}
	return nil
}

// ReadBinary reads a matrix written by WriteBinary.
func ReadBinary(r io.Reader) (*Matrix, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrMalformedMatrix, err)
	}
	if !bytes.Equal(header[:4], magic[:]) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrMalformedMatrix, header[:4])
	}
	rows := binary.LittleEndian.Uint64(header[4:12])
	cols := binary.LittleEndian.Uint64(header[12:20])
	if rows > 1<<31 || cols > 1<<31 {
		return nil, fmt.Errorf("%w: implausible shape %dx%d", ErrMalformedMatrix, rows, cols)
	}

	if rows == 0 || cols == 0 {
		return NewMatrix(int(rows), int(cols)), nil
	}

	var dense mat.Dense
	if _, err := dense.UnmarshalBinaryFrom(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMatrix, err)
	}
	if dr, dc := dense.Dims(); dr != int(rows) || dc != int(cols) {
		return nil, fmt.Errorf("%w: header says %dx%d, data is %dx%d", ErrMalformedMatrix, rows, cols, dr, dc)
	}
	return FromDense(&dense)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (m *Matrix) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteBinary(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (m *Matrix) UnmarshalBinary(data []byte) error {
	decoded, err := ReadBinary(bytes.NewReader(data))
	if err != nil {
		return err
	}
	*m = *decoded
	return nil
}

// WriteText writes one row per line, values separated by single spaces.
func WriteText(w io.Writer, m *Matrix) error {
	bw := bufio.NewWriter(w)
	for i := range m.rows {
		for j, v := range m.Row(i) {
			if j > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteByte('0' + v)
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing matrix text: %w", err)
	}
	return nil
}

// ReadText reads a whitespace separated 0/1 matrix, one row per non-blank
// line. All rows must have the same number of values.
func ReadText(r io.Reader) (*Matrix, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<24)

	var rows [][]uint8
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		row := make([]uint8, len(fields))
		for j, f := range fields {
			switch f {
			case "0":
			case "1":
				row[j] = 1
			default:
				return nil, fmt.Errorf("%w: line %d: value %q", ErrMalformedMatrix, lineNo, f)
			}
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading matrix text: %w", err)
	}
	return FromRows(rows)
}

// Save writes m to path in binary form.
func Save(path string, m *Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteBinary(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SaveText writes m to path in text form.
func SaveText(path string, m *Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteText(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads a matrix from path, trying the binary form first and falling
// back to the text form.
func Load(path string) (*Matrix, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m, binErr := ReadBinary(bytes.NewReader(content))
	if binErr == nil {
		return m, nil
	}
	m, err = ReadText(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w (binary: %v)", path, err, binErr)
	}
	return m, nil
}
