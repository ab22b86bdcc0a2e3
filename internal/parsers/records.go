package parsers

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Benny93/sgindex/internal/graph"
)

// FormatRecords is the `v <id> <label>` / `e <u> <v> <label>` / `#` format.
const FormatRecords = "records"

const maxLineSize = 1 << 20

// RecordParser parses the `v/e/#` record format.
type RecordParser struct{}

// NewRecordParser creates a new record parser.
func NewRecordParser() *RecordParser {
	return &RecordParser{}
}

// Format returns the format name.
func (p *RecordParser) Format() string {
	return FormatRecords
}

// Parse parses the content of a dataset file.
func (p *RecordParser) Parse(filePath string, content []byte) (*ParseResult, error) {
	result, err := parseStream(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}
	result.Path = filePath
	return result, nil
}

// ParseRecords parses every graph record in r, in input order.
//
// Blank lines are skipped. A `#` line closes the current record; a record
// without vertices is dropped. A trailing record with vertices and no closing
// `#` is still returned. Any other leading token, a non-integer field or a
// wrong field count fails the whole parse with a *graph.MalformedRecordError.
func ParseRecords(r io.Reader) ([]*graph.Graph, error) {
	result, err := parseStream(r)
	if err != nil {
		return nil, err
	}
	return result.Graphs, nil
}

// ParseRecordsFile parses a dataset file from disk.
func ParseRecordsFile(path string) ([]*graph.Graph, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	result, err := NewRecordParser().Parse(path, content)
	if err != nil {
		return nil, err
	}
	return result.Graphs, nil
}

// recordBuilder accumulates the lines of one record.
type recordBuilder struct {
	nodes []graph.Node
	edges []graph.Edge
}

func (b *recordBuilder) flush(out []*graph.Graph) []*graph.Graph {
	if len(b.nodes) > 0 {
		out = append(out, graph.New(b.nodes, b.edges))
	}
	b.nodes = nil
	b.edges = nil
	return out
}

func parseStream(r io.Reader) (*ParseResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	result := &ParseResult{}
	var rec recordBuilder
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "#" {
			result.Graphs = rec.flush(result.Graphs)
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			vals, err := parseInts(fields, 2, lineNo, line)
			if err != nil {
				return nil, err
			}
			rec.nodes = append(rec.nodes, graph.Node{ID: vals[0], Label: vals[1]})
		case "e":
			vals, err := parseInts(fields, 3, lineNo, line)
			if err != nil {
				return nil, err
			}
			rec.edges = append(rec.edges, graph.Edge{U: vals[0], V: vals[1], Label: vals[2]})
		default:
			return nil, &graph.MalformedRecordError{Line: lineNo, Text: line, Reason: "unknown token " + strconv.Quote(fields[0])}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}

	result.Graphs = rec.flush(result.Graphs)
	result.Lines = lineNo
	return result, nil
}

func parseInts(fields []string, want, lineNo int, line string) ([]int, error) {
	if len(fields)-1 != want {
		return nil, &graph.MalformedRecordError{
			Line:   lineNo,
			Text:   line,
			Reason: fmt.Sprintf("expected %d fields after %q, got %d", want, fields[0], len(fields)-1),
		}
	}
	vals := make([]int, want)
	for i := range want {
		n, err := strconv.Atoi(fields[i+1])
		if err != nil {
			return nil, &graph.MalformedRecordError{Line: lineNo, Text: line, Reason: "non-integer field " + strconv.Quote(fields[i+1])}
		}
		vals[i] = n
	}
	return vals, nil
}

// WriteRecords writes graphs in record format, one `#`-terminated block per
// graph, nodes in first-seen order and edges in input order.
func WriteRecords(w io.Writer, graphs []*graph.Graph) error {
	bw := bufio.NewWriter(w)
	for _, g := range graphs {
		for _, n := range g.Nodes() {
			fmt.Fprintf(bw, "v %d %d\n", n.ID, n.Label)
		}
		for _, e := range g.Edges() {
			fmt.Fprintf(bw, "e %d %d %d\n", e.U, e.V, e.Label)
		}
		bw.WriteString("#\n")
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing records: %w", err)
	}
	return nil
}

// WriteRecordsFile writes graphs to a file in record format.
func WriteRecordsFile(path string, graphs []*graph.Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteRecords(f, graphs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
