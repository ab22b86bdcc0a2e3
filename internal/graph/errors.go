package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord is returned for an input line that is not a valid
	// part of a graph record.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrEmptyCorpus is returned when there is no graph left to mine.
	ErrEmptyCorpus = errors.New("empty corpus")
)

// MalformedRecordError describes the offending input line.
type MalformedRecordError struct {
	Line   int
	Text   string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record at line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// Unwrap makes errors.Is(err, ErrMalformedRecord) hold.
func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedRecord
}
