package parsers

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/sgindex/internal/graph"
)

func TestParseRecords(t *testing.T) {
	t.Parallel()

	t.Run("TwoRecords", func(t *testing.T) {
		t.Parallel()
		input := `v 0 1
v 1 2
e 0 1 9
#
v 0 3
#
`
		graphs, err := ParseRecords(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, graphs, 2)

		assert.Equal(t, []graph.Node{{ID: 0, Label: 1}, {ID: 1, Label: 2}}, graphs[0].Nodes())
		assert.Equal(t, []graph.Edge{{U: 0, V: 1, Label: 9}}, graphs[0].Edges())
		assert.Equal(t, 1, graphs[1].NodeCount())
		assert.Equal(t, 0, graphs[1].EdgeCount())
	})

	t.Run("BlankLinesAndWhitespace", func(t *testing.T) {
		t.Parallel()
		input := "\n  v 0 1  \n\n\tv 1 1\ne 0 1 4\n\n#\n\n"

		graphs, err := ParseRecords(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, graphs, 1)
		assert.Equal(t, 2, graphs[0].NodeCount())
	})

	t.Run("EmptyRecordDropped", func(t *testing.T) {
		t.Parallel()
		graphs, err := ParseRecords(strings.NewReader("#\n#\nv 0 1\n#\n"))
		require.NoError(t, err)
		assert.Len(t, graphs, 1)
	})

	t.Run("TrailingRecordWithoutTerminator", func(t *testing.T) {
		t.Parallel()
		graphs, err := ParseRecords(strings.NewReader("v 0 1\n#\nv 5 6\ne 5 5 1"))
		require.NoError(t, err)
		require.Len(t, graphs, 2)
		assert.Equal(t, []int{5}, graphs[1].NodeIDs())
	})

	t.Run("EmptyInput", func(t *testing.T) {
		t.Parallel()
		graphs, err := ParseRecords(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, graphs)
	})

	t.Run("NegativeLabels", func(t *testing.T) {
		t.Parallel()
		graphs, err := ParseRecords(strings.NewReader("v 0 -3\n#\n"))
		require.NoError(t, err)
		label, ok := graphs[0].Label(0)
		assert.True(t, ok)
		assert.Equal(t, -3, label)
	})
}

func TestParseRecords_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		line   int
		reason string
	}{
		{"UnknownToken", "v 0 1\nt # 0\n", 2, "unknown token"},
		{"NonIntegerLabel", "v 0 x\n", 1, "non-integer"},
		{"NonIntegerEdge", "v 0 1\nv 1 1\ne 0 1.5 2\n", 3, "non-integer"},
		{"VertexTooFewFields", "v 0\n", 1, "expected 2 fields"},
		{"EdgeTooManyFields", "\nv 0 1\ne 0 0 1 7\n", 3, "expected 3 fields"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			graphs, err := ParseRecords(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Nil(t, graphs)
			assert.True(t, errors.Is(err, graph.ErrMalformedRecord))

			var mre *graph.MalformedRecordError
			require.True(t, errors.As(err, &mre))
			assert.Equal(t, tt.line, mre.Line)
			assert.Contains(t, mre.Reason, tt.reason)
		})
	}
}

func TestRecordParser_Parse(t *testing.T) {
	t.Parallel()

	parser := NewRecordParser()
	assert.Equal(t, FormatRecords, parser.Format())

	result, err := parser.Parse("db.txt", []byte("v 0 1\n#\nv 0 2\n#\n"))
	require.NoError(t, err)
	assert.Equal(t, "db.txt", result.Path)
	assert.Len(t, result.Graphs, 2)
	assert.Equal(t, 4, result.Lines)

	_, err = parser.Parse("bad.txt", []byte("x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.txt")
	assert.True(t, errors.Is(err, graph.ErrMalformedRecord))
}

func TestWriteRecords(t *testing.T) {
	t.Parallel()

	t.Run("RoundTrip", func(t *testing.T) {
		t.Parallel()
		input := "v 3 1\nv 1 2\ne 3 1 9\ne 1 3 4\n#\nv 0 0\n#\n"

		graphs, err := ParseRecords(strings.NewReader(input))
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, WriteRecords(&buf, graphs))
		assert.Equal(t, input, buf.String())

		again, err := ParseRecords(&buf)
		require.NoError(t, err)
		require.Len(t, again, len(graphs))
		for i := range graphs {
			assert.Equal(t, graph.ComputeSignature(graphs[i]), graph.ComputeSignature(again[i]))
		}
	})

	t.Run("File", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "out.txt")
		g := graph.New([]graph.Node{{ID: 0, Label: 1}}, nil)

		require.NoError(t, WriteRecordsFile(path, []*graph.Graph{g}))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "v 0 1\n#\n", string(content))

		graphs, err := ParseRecordsFile(path)
		require.NoError(t, err)
		assert.Len(t, graphs, 1)
	})

	t.Run("MissingFile", func(t *testing.T) {
		t.Parallel()
		_, err := ParseRecordsFile(filepath.Join(t.TempDir(), "nope.txt"))
		assert.Error(t, err)
	})
}
