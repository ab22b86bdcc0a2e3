package pattern

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMalformedFeature is returned for a feature-file line that is not a
// valid pattern.
var ErrMalformedFeature = errors.New("malformed feature")

// FeatureSet is the ordered list of selected patterns. Its order fixes the
// column order of every feature vector built from it.
type FeatureSet []Pattern

// Len returns the number of features.
func (s FeatureSet) Len() int {
	return len(s)
}

// ReadFeatureSet reads one pattern per non-blank line.
func ReadFeatureSet(r io.Reader) (FeatureSet, error) {
	scanner := bufio.NewScanner(r)
	var set FeatureSet
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		p, err := Parse(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		set = append(set, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading features: %w", err)
	}
	return set, nil
}

// WriteFeatureSet writes one pattern per line.
func WriteFeatureSet(w io.Writer, set FeatureSet) error {
	bw := bufio.NewWriter(w)
	for _, p := range set {
		bw.WriteString(p.String())
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing features: %w", err)
	}
	return nil
}

// LoadFeatureSet reads a feature file from disk.
func LoadFeatureSet(path string) (FeatureSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	set, err := ReadFeatureSet(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return set, nil
}

// SaveFeatureSet writes a feature file to disk.
func SaveFeatureSet(path string, set FeatureSet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteFeatureSet(f, set); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
