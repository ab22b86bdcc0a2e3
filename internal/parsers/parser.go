// Package parsers reads and writes graph datasets in the `v/e/#` record format.
package parsers

import "github.com/Benny93/sgindex/internal/graph"

// ParseResult contains every graph parsed from one dataset file.
type ParseResult struct {
	// Path is the file the graphs came from (empty for stream input)
	Path string

	// Graphs in input order
	Graphs []*graph.Graph

	// Lines is the number of input lines consumed
	Lines int
}

// Parser defines the interface for dataset parsers.
type Parser interface {
	// Parse parses a dataset file into graphs.
	Parse(filePath string, content []byte) (*ParseResult, error)

	// Format returns the record format this parser handles
	Format() string
}
