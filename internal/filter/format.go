package filter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrMalformedCandidates is returned for a candidate file that does not
// follow the `q # <id>` / `c # <ids...>` layout.
var ErrMalformedCandidates = errors.New("malformed candidate file")

// WriteCandidates writes one block per result:
//
//	q # <queryId>
//	c # <id1> <id2> ...
func WriteCandidates(w io.Writer, results []Result) error {
	bw := bufio.NewWriter(w)
	for _, r := range results {
		bw.WriteString("q # ")
		bw.WriteString(strconv.Itoa(r.QueryID))
		bw.WriteString("\nc #")
		for _, id := range r.IDs {
			bw.WriteByte(' ')
			bw.WriteString(strconv.Itoa(id))
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing candidates: %w", err)
	}
	return nil
}

// SaveCandidates writes a candidate file to disk.
func SaveCandidates(path string, results []Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteCandidates(f, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadCandidates parses a candidate file. A `c #` line may be followed by
// continuation lines of bare ids. Fallback is not recorded in the file and is
// always false in the returned results.
func ReadCandidates(r io.Reader) ([]Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<24)

	var results []Result
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch {
		case len(fields) >= 2 && fields[0] == "q" && fields[1] == "#":
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: line %d: query line needs one id", ErrMalformedCandidates, lineNo)
			}
			id, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: bad query id %q", ErrMalformedCandidates, lineNo, fields[2])
			}
			results = append(results, Result{QueryID: id})
		case len(fields) >= 2 && fields[0] == "c" && fields[1] == "#":
			if err := appendIDs(results, fields[2:], lineNo); err != nil {
				return nil, err
			}
		default:
			if err := appendIDs(results, fields, lineNo); err != nil {
				return nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading candidates: %w", err)
	}
	return results, nil
}

func appendIDs(results []Result, fields []string, lineNo int) error {
	if len(results) == 0 {
		return fmt.Errorf("%w: line %d: candidates before any query", ErrMalformedCandidates, lineNo)
	}
	last := &results[len(results)-1]
	for _, f := range fields {
		id, err := strconv.Atoi(f)
		if err != nil {
			return fmt.Errorf("%w: line %d: bad candidate id %q", ErrMalformedCandidates, lineNo, f)
		}
		last.IDs = append(last.IDs, id)
	}
	return nil
}

// LoadCandidates reads a candidate file from disk.
func LoadCandidates(path string) ([]Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	results, err := ReadCandidates(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return results, nil
}
