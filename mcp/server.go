// Package mcp provides the MCP (Model Context Protocol) server for sgindex.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/Benny93/sgindex/internal/ingestion"
	"github.com/Benny93/sgindex/internal/parsers"
	"github.com/Benny93/sgindex/internal/pattern"
	"github.com/Benny93/sgindex/internal/storage"
)

const (
	serverName = "sgindex"

	defaultFeatureLimit = 50
)

// Version is reported in the implementation info. The CLI overrides it
// with its own.
var Version = "0.1.0"

// Server represents the MCP server.
type Server struct {
	storage storage.StorageBackend
	server  *mcp.Server
	logger  zerolog.Logger
	workers int
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates a new MCP server over an opened index.
func NewServer(store storage.StorageBackend, logger zerolog.Logger) *Server {
	s := &Server{
		storage: store,
		logger:  logger,
		workers: runtime.NumCPU(),
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: Version,
	}, nil)
	s.register()

	return s
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name:        "sgindex_features",
			Description: "List the discriminative features of the index with their support and score.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"kind":  {Type: "string", Description: "Only list features of this kind (EDGE, PATH2 or TRI)"},
					"limit": {Type: "integer", Description: "Maximum number of features"},
				},
			},
		},
		{
			Name:        "sgindex_candidates",
			Description: "Filter query graphs against the index and return the candidate database graph ids per query.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"graphs": {Type: "string", Description: "Query graphs in v/e/# record format"},
				},
				Required: []string{"graphs"},
			},
		},
		{
			Name:        "sgindex_match",
			Description: "Check whether each given graph contains an occurrence of a pattern such as 'EDGE 1 9 2'.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"pattern": {Type: "string", Description: "Pattern in feature-file form"},
					"graphs":  {Type: "string", Description: "Graphs in v/e/# record format"},
				},
				Required: []string{"pattern", "graphs"},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "sgindex://overview",
			Name:        "Index Overview",
			Description: "Run metadata and sizes of the stored index",
			MimeType:    "text/plain",
		},
		{
			URI:         "sgindex://features",
			Name:        "Feature File",
			Description: "The selected feature set, one pattern per line",
			MimeType:    "text/plain",
		},
		{
			URI:         "sgindex://format",
			Name:        "Record Format",
			Description: "Description of the graph record and pattern formats",
			MimeType:    "text/plain",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "sgindex_features":
		kind, _ := args["kind"].(string)
		limit, _ := args["limit"].(float64)
		if limit == 0 {
			limit = defaultFeatureLimit
		}
		return handleFeatures(ctx, s.storage, kind, int(limit))
	case "sgindex_candidates":
		graphs, _ := args["graphs"].(string)
		return s.handleCandidates(ctx, graphs)
	case "sgindex_match":
		p, _ := args["pattern"].(string)
		graphs, _ := args["graphs"].(string)
		return handleMatch(p, graphs)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "sgindex://overview":
		return getOverview(ctx, s.storage), nil
	case "sgindex://features":
		return getFeatureFile(ctx, s.storage)
	case "sgindex://format":
		return getFormat(), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// Serve runs the MCP session over t until the client disconnects or ctx
// is cancelled.
func (s *Server) Serve(ctx context.Context, t mcp.Transport) error {
	return s.server.Run(ctx, t)
}

// RunStdio serves MCP over stdin and stdout.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.Serve(ctx, &mcp.StdioTransport{})
}

// register binds every tool and resource to the SDK server.
func (s *Server) register() {
	for _, tool := range s.ListTools() {
		name := tool.Name
		s.server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := map[string]any{}
			if raw := req.Params.Arguments; len(raw) > 0 {
				if err := json.Unmarshal(raw, &args); err != nil {
					return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
				}
			}

			text, err := s.CallTool(ctx, name, args)
			if err != nil {
				s.logger.Debug().Err(err).Str("tool", name).Msg("tool call failed")
				return toolError(err), nil
			}
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil
		})
	}

	for _, res := range s.ListResources() {
		mimeType := res.MimeType
		s.server.AddResource(&mcp.Resource{
			URI:         res.URI,
			Name:        res.Name,
			Description: res.Description,
			MIMEType:    res.MimeType,
		}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			uri := req.Params.URI
			text, err := s.ReadResource(ctx, uri)
			if err != nil {
				return nil, err
			}
			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: mimeType, Text: text}},
			}, nil
		})
	}
}

// toolError reports err inside the tool result so the client sees it.
func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}

// Tool Handlers

func handleFeatures(ctx context.Context, store storage.StorageBackend, kind string, limit int) (string, error) {
	var want pattern.Kind
	if kind != "" {
		k, err := pattern.ParseKind(strings.ToUpper(kind))
		if err != nil {
			return "", err
		}
		want = k
	}

	feats, err := store.GetFeatures(ctx)
	if err != nil {
		return "", err
	}
	if len(feats) == 0 {
		return noIndexMessage, nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Features (%d selected)\n\n", len(feats)))
	sb.WriteString("| # | Pattern | Support | Score |\n")
	sb.WriteString("|---|---------|---------|-------|\n")

	shown := 0
	for i, sp := range feats {
		if want != 0 && sp.Pattern.Kind() != want {
			continue
		}
		if shown == limit {
			sb.WriteString(fmt.Sprintf("\n... truncated at %d features\n", limit))
			break
		}
		sb.WriteString(fmt.Sprintf("| %d | `%s` | %d | %.4f |\n", i+1, sp.Pattern, sp.Support, sp.Score))
		shown++
	}

	return sb.String(), nil
}

func (s *Server) handleCandidates(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "No query graphs provided", nil
	}

	queries, err := parsers.ParseRecords(strings.NewReader(text))
	if err != nil {
		return "", err
	}
	if len(queries) == 0 {
		return "No query graphs found in input", nil
	}

	out, err := ingestion.RunQuery(ctx, s.storage, queries, s.workers, s.logger)
	if errors.Is(err, storage.ErrIndexNotFound) {
		return noIndexMessage, nil
	}
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Candidates for %d queries\n\n", len(out.Results)))
	for _, r := range out.Results {
		sb.WriteString(fmt.Sprintf("- Query %d: %d candidates", r.QueryID, len(r.IDs)))
		if r.Fallback {
			sb.WriteString(" (no graph dominates the query; all graphs returned)")
		}
		if id, ok := out.Exact[r.QueryID]; ok {
			sb.WriteString(fmt.Sprintf(", identical to database graph %d", id))
		}
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("  ids: %s\n", joinInts(r.IDs)))
	}

	return sb.String(), nil
}

func handleMatch(line, text string) (string, error) {
	p, err := pattern.Parse(line)
	if err != nil {
		return "", err
	}

	graphs, err := parsers.ParseRecords(strings.NewReader(text))
	if err != nil {
		return "", err
	}
	if len(graphs) == 0 {
		return "No graphs found in input", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Pattern `%s`\n\n", p))
	matched := 0
	for i, g := range graphs {
		ok := pattern.Matches(g, p)
		if ok {
			matched++
		}
		sb.WriteString(fmt.Sprintf("- Graph %d (%d nodes, %d edges): %s\n", i+1, g.NodeCount(), g.EdgeCount(), yesNo(ok)))
	}
	sb.WriteString(fmt.Sprintf("\n%d of %d graphs contain the pattern.\n", matched, len(graphs)))

	return sb.String(), nil
}

// Resource Handlers

const noIndexMessage = "No index found. Run `sgindex index <dataset>` first."

func getOverview(ctx context.Context, store storage.StorageBackend) string {
	meta, err := store.GetMeta(ctx)
	if err != nil {
		return noIndexMessage
	}

	var sb strings.Builder
	sb.WriteString("# sgindex Overview\n\n")
	sb.WriteString(fmt.Sprintf("**Dataset:** %s\n", meta.Dataset))
	sb.WriteString(fmt.Sprintf("**Run:** %s (sgindex %s)\n", meta.RunID, meta.Version))
	sb.WriteString(fmt.Sprintf("**Indexed at:** %s\n", meta.IndexedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("**Graphs:** %d (%d parsed)\n", store.GraphCount(), meta.Parsed))
	sb.WriteString(fmt.Sprintf("**Features:** %d of %d patterns (top_k=%d, min_support=%d)\n",
		store.FeatureCount(), meta.Patterns, meta.TopK, meta.MinSupport))

	return sb.String()
}

func getFeatureFile(ctx context.Context, store storage.StorageBackend) (string, error) {
	idx, err := store.LoadIndex(ctx)
	if errors.Is(err, storage.ErrIndexNotFound) {
		return noIndexMessage, nil
	}
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if err := pattern.WriteFeatureSet(&sb, idx.FeatureSet()); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func getFormat() string {
	var sb strings.Builder
	sb.WriteString("# sgindex Formats\n\n")
	sb.WriteString("## Graph records\n\n")
	sb.WriteString("| Line | Meaning |\n")
	sb.WriteString("|------|---------|\n")
	sb.WriteString("| `v <id> <label>` | Node with integer id and label |\n")
	sb.WriteString("| `e <u> <v> <label>` | Undirected labeled edge |\n")
	sb.WriteString("| `#` | End of the current graph |\n")
	sb.WriteString("\n## Patterns\n\n")
	sb.WriteString("| Kind | Fields |\n")
	sb.WriteString("|------|--------|\n")
	sb.WriteString("| `EDGE` | label_a edge label_b |\n")
	sb.WriteString("| `PATH2` | label_left edge_left label_center edge_right label_right |\n")
	sb.WriteString("| `TRI` | label_1 edge_12 label_2 edge_13 label_3 edge_23 |\n")

	return sb.String()
}

// Helper functions

func joinInts(ids []int) string {
	if len(ids) == 0 {
		return "(none)"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, " ")
}

func yesNo(ok bool) string {
	if ok {
		return "match"
	}
	return "no match"
}
