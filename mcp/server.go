// Package mcp provides the MCP (Model Context Protocol) server for corrnet.
//
// The server answers neighborhood, subnetwork, edge and degree lookups
// against one indexed network. Tools and resources are registered on a
// go-sdk server, which handles the protocol over any mcp.Transport.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Benny93/corrnet-go/internal/metrics"
	"github.com/Benny93/corrnet-go/internal/parsers"
	"github.com/Benny93/corrnet-go/internal/pipeline"
	"github.com/Benny93/corrnet-go/internal/query"
	"github.com/Benny93/corrnet-go/internal/storage"
)

// Server represents the MCP server.
type Server struct {
	storage StorageBackend
	server  *mcp.Server
	version string
}

// StorageBackend is the read side of a network store.
type StorageBackend interface {
	Neighbors(ctx context.Context, gene string) ([]parsers.Record, error)
	Edge(ctx context.Context, gene1, gene2 string) (*parsers.Record, error)
	Degree(ctx context.Context, gene string) (int, error)
	Genes(ctx context.Context) ([]string, error)
	Meta(ctx context.Context) (storage.Meta, error)
	NodeCount() int
	EdgeCount() int
}

var _ StorageBackend = storage.NetworkStore(nil)

const (
	defaultDepth = 1
	maxDepth     = 10
)

const (
	overviewURI = "corrnet://overview"
	schemaURI   = "corrnet://schema"
)

// NeighborsInput is the input of corrnet_neighbors.
type NeighborsInput struct {
	Gene       string   `json:"gene" jsonschema:"Gene identifier to start from"`
	Depth      *int     `json:"depth,omitempty" jsonschema:"Number of steps to follow (default 1)"`
	Mode       string   `json:"mode,omitempty" jsonschema:"walk may revisit genes; simple-path never re-enters a gene on the current path"`
	RankCutoff *float64 `json:"rank_cutoff,omitempty" jsonschema:"Keep edges with rank <= this value"`
	PCCCutoff  *float64 `json:"pcc_cutoff,omitempty" jsonschema:"Keep edges with corr >= this value"`
	AbsPCC     bool     `json:"abs_pcc,omitempty" jsonschema:"Compare |corr| against pcc_cutoff"`
	Unique     bool     `json:"unique,omitempty" jsonschema:"Report every gene pair once"`
}

func (in NeighborsInput) filter() parsers.Filter {
	return parsers.Filter{Rank: in.RankCutoff, PCC: in.PCCCutoff, AbsPCC: in.AbsPCC}
}

// ExtractInput is the input of corrnet_extract.
type ExtractInput struct {
	Genes      []string `json:"genes" jsonschema:"Genes whose subnetwork to extract"`
	Mode       string   `json:"mode,omitempty" jsonschema:"both keeps edges between listed genes; any keeps every edge touching one"`
	RankCutoff *float64 `json:"rank_cutoff,omitempty" jsonschema:"Keep edges with rank <= this value"`
	PCCCutoff  *float64 `json:"pcc_cutoff,omitempty" jsonschema:"Keep edges with corr >= this value"`
	AbsPCC     bool     `json:"abs_pcc,omitempty" jsonschema:"Compare |corr| against pcc_cutoff"`
}

func (in ExtractInput) filter() parsers.Filter {
	return parsers.Filter{Rank: in.RankCutoff, PCC: in.PCCCutoff, AbsPCC: in.AbsPCC}
}

// EdgeInput is the input of corrnet_edge.
type EdgeInput struct {
	Gene1 string `json:"gene_1" jsonschema:"First gene"`
	Gene2 string `json:"gene_2" jsonschema:"Second gene"`
}

// DegreeInput is the input of corrnet_degree.
type DegreeInput struct {
	Gene string `json:"gene" jsonschema:"Gene identifier"`
}

// StatsInput is the input of corrnet_stats.
type StatsInput struct{}

// NewServer creates a new MCP server reporting the given version.
func NewServer(storage StorageBackend, version string) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{
		storage: storage,
		version: version,
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "corrnet",
		Version: version,
	}, nil)

	s.registerTools()
	s.registerResources()
	return s
}

// Run serves MCP requests on t until the client disconnects or ctx is
// cancelled.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	if t == nil {
		return errors.New("transport must not be nil")
	}
	return s.server.Run(ctx, t)
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "corrnet_neighbors",
		Description: "List the co-expression edges reachable from a gene within a depth limit, as gene_1,gene_2,corr,rank CSV.",
		InputSchema: neighborsSchema(),
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in NeighborsInput) (*mcp.CallToolResult, any, error) {
		req, err := neighborsRequestFrom(in)
		if err != nil {
			return nil, nil, err
		}
		return textResult(handleNeighbors(ctx, s.storage, req))
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "corrnet_extract",
		Description: "Extract the subnetwork of a gene list, as gene_1,gene_2,corr,rank CSV.",
		InputSchema: extractSchema(),
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in ExtractInput) (*mcp.CallToolResult, any, error) {
		mode, err := pipeline.ParseGeneFilterMode(in.Mode)
		if err != nil {
			return nil, nil, err
		}
		return textResult(handleExtract(ctx, s.storage, in.Genes, mode, in.filter()))
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "corrnet_edge",
		Description: "Look up the edge between two genes, in either order.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in EdgeInput) (*mcp.CallToolResult, any, error) {
		return textResult(handleEdge(ctx, s.storage, in.Gene1, in.Gene2))
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "corrnet_degree",
		Description: "Count the edges touching a gene.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in DegreeInput) (*mcp.CallToolResult, any, error) {
		return textResult(handleDegree(ctx, s.storage, in.Gene))
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "corrnet_stats",
		Description: "Report node and edge counts and where the network was loaded from.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ StatsInput) (*mcp.CallToolResult, any, error) {
		return textResult(handleStats(ctx, s.storage))
	})
}

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         overviewURI,
		Name:        "Network Overview",
		Description: "Counts and source of the indexed co-expression network",
		MIMEType:    "text/plain",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return textResource(req.Params.URI, getOverview(ctx, s.storage)), nil
	})

	s.server.AddResource(&mcp.Resource{
		URI:         schemaURI,
		Name:        "Edge Schema",
		Description: "Columns of the network edge list and what rank means per method",
		MIMEType:    "text/plain",
	}, func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return textResource(req.Params.URI, getSchema()), nil
	})
}

// neighborsSchema is the inferred input schema with the mode choices and
// depth bounds added.
func neighborsSchema() *jsonschema.Schema {
	schema, err := jsonschema.For[NeighborsInput](nil)
	if err != nil {
		panic(fmt.Sprintf("corrnet_neighbors schema: %v", err))
	}
	schema.Properties["mode"].Enum = []any{string(query.ModeWalk), string(query.ModeSimplePath)}
	lo, hi := 0.0, float64(maxDepth)
	schema.Properties["depth"].Minimum = &lo
	schema.Properties["depth"].Maximum = &hi
	return schema
}

func extractSchema() *jsonschema.Schema {
	schema, err := jsonschema.For[ExtractInput](nil)
	if err != nil {
		panic(fmt.Sprintf("corrnet_extract schema: %v", err))
	}
	schema.Properties["mode"].Enum = []any{string(pipeline.GeneFilterBoth), string(pipeline.GeneFilterAny)}
	return schema
}

func textResult(text string, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

func textResource(uri, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: "text/plain", Text: text}},
	}
}

// Tool Handlers

type neighborsRequest struct {
	gene   string
	depth  int
	mode   query.Mode
	filter parsers.Filter
	unique bool
}

// neighborsRequestFrom validates corrnet_neighbors input.
func neighborsRequestFrom(in NeighborsInput) (neighborsRequest, error) {
	req := neighborsRequest{
		gene:   in.Gene,
		depth:  defaultDepth,
		filter: in.filter(),
		unique: in.Unique,
	}
	if in.Depth != nil {
		req.depth = *in.Depth
	}
	if req.depth < 0 || req.depth > maxDepth {
		return req, fmt.Errorf("depth must be between 0 and %d", maxDepth)
	}

	mode, err := query.ParseMode(in.Mode)
	if err != nil {
		return req, err
	}
	req.mode = mode
	return req, nil
}

func handleNeighbors(ctx context.Context, store StorageBackend, req neighborsRequest) (string, error) {
	if req.gene == "" {
		return "No gene provided", nil
	}

	records, err := query.Search(ctx, query.Filtered(store, req.filter), req.gene, req.depth, req.mode)
	if errors.Is(err, query.ErrUnknownGene) {
		metrics.Queries.WithLabelValues("unknown_gene").Inc()
		return fmt.Sprintf("Gene '%s' is not in the network.", req.gene), nil
	}
	if err != nil {
		metrics.Queries.WithLabelValues("error").Inc()
		return "", err
	}
	metrics.Queries.WithLabelValues("ok").Inc()

	if req.unique {
		records = query.Unique(records)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Neighbors of %s\n\n", req.gene))
	sb.WriteString(fmt.Sprintf("Depth: %d, mode: %s, edges: %d\n\n", req.depth, req.mode, len(records)))
	if len(records) == 0 {
		sb.WriteString("No edges pass the given cutoffs.\n")
		return sb.String(), nil
	}

	sb.WriteString("```csv\n")
	w, err := parsers.NewEdgeWriter(&sb)
	if err != nil {
		return "", err
	}
	for _, r := range records {
		if err := w.Write(r); err != nil {
			return "", err
		}
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	sb.WriteString("```\n")

	return sb.String(), nil
}

func handleEdge(ctx context.Context, store StorageBackend, gene1, gene2 string) (string, error) {
	if gene1 == "" || gene2 == "" {
		return "Both gene_1 and gene_2 are required", nil
	}

	rec, err := store.Edge(ctx, gene1, gene2)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return fmt.Sprintf("No edge between '%s' and '%s'.", gene1, gene2), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Edge %s - %s\n\n", rec.Gene1, rec.Gene2))
	sb.WriteString(fmt.Sprintf("**corr:** %s\n", parsers.FormatCorr(rec.Corr)))
	sb.WriteString(fmt.Sprintf("**rank:** %s\n", rec.Rank))
	return sb.String(), nil
}

func handleDegree(ctx context.Context, store StorageBackend, gene string) (string, error) {
	if gene == "" {
		return "No gene provided", nil
	}

	d, err := store.Degree(ctx, gene)
	if err != nil {
		return "", err
	}
	if d == 0 {
		return fmt.Sprintf("Gene '%s' is not in the network.", gene), nil
	}
	return fmt.Sprintf("%s has %d edges.", gene, d), nil
}

func handleStats(ctx context.Context, store StorageBackend) (string, error) {
	meta, err := store.Meta(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("## Network Stats\n\n")
	sb.WriteString(fmt.Sprintf("**Genes:** %d\n", store.NodeCount()))
	sb.WriteString(fmt.Sprintf("**Edges:** %d\n", store.EdgeCount()))
	if meta.Source != "" {
		sb.WriteString(fmt.Sprintf("**Source:** %s\n", meta.Source))
		sb.WriteString(fmt.Sprintf("**Loaded:** %s\n", meta.LoadedAt.Format("2006-01-02 15:04:05 MST")))
	}
	return sb.String(), nil
}

func handleExtract(ctx context.Context, store StorageBackend, genes []string, mode pipeline.GeneFilterMode, f parsers.Filter) (string, error) {
	if len(genes) == 0 {
		return "No genes provided", nil
	}

	set := make(map[string]struct{}, len(genes))
	for _, g := range genes {
		set[g] = struct{}{}
	}

	src := query.Filtered(store, f)
	var records []parsers.Record
	var missing []string
	for _, g := range genes {
		edges, err := src.Neighbors(ctx, g)
		if errors.Is(err, query.ErrUnknownGene) {
			missing = append(missing, g)
			continue
		}
		if err != nil {
			return "", err
		}
		for _, r := range edges {
			if mode == pipeline.GeneFilterBoth {
				if _, ok := set[r.Other(g)]; !ok {
					continue
				}
			}
			records = append(records, r)
		}
	}
	records = query.Unique(records)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Subnetwork of %d genes\n\n", len(set)))
	sb.WriteString(fmt.Sprintf("Mode: %s, edges: %d\n", mode, len(records)))
	if len(missing) > 0 {
		sb.WriteString(fmt.Sprintf("Not in the network: %s\n", strings.Join(missing, ", ")))
	}
	sb.WriteString("\n")
	if len(records) == 0 {
		sb.WriteString("No edges pass the given cutoffs.\n")
		return sb.String(), nil
	}

	sb.WriteString("```csv\n")
	w, err := parsers.NewEdgeWriter(&sb)
	if err != nil {
		return "", err
	}
	for _, r := range records {
		if err := w.Write(r); err != nil {
			return "", err
		}
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	sb.WriteString("```\n")
	return sb.String(), nil
}

// Resource Handlers

func getOverview(ctx context.Context, store StorageBackend) string {
	var sb strings.Builder
	sb.WriteString("# corrnet Network Overview\n\n")
	sb.WriteString(fmt.Sprintf("**Genes:** %d\n", store.NodeCount()))
	sb.WriteString(fmt.Sprintf("**Edges:** %d\n", store.EdgeCount()))

	if meta, err := store.Meta(ctx); err == nil && meta.Source != "" {
		sb.WriteString(fmt.Sprintf("**Source:** %s\n", meta.Source))
	}

	genes, err := store.Genes(ctx)
	if err != nil || len(genes) == 0 {
		return sb.String()
	}

	const sample = 10
	sb.WriteString("\n## Genes\n\n")
	for i, g := range genes {
		if i == sample {
			sb.WriteString(fmt.Sprintf("- ... and %d more\n", len(genes)-sample))
			break
		}
		sb.WriteString(fmt.Sprintf("- %s\n", g))
	}
	return sb.String()
}

func getSchema() string {
	var sb strings.Builder
	sb.WriteString("# corrnet Edge Schema\n\n")
	sb.WriteString("Networks are undirected; each edge is stored once and found from either gene.\n\n")
	sb.WriteString("| Column | Type | Meaning |\n")
	sb.WriteString("|--------|------|---------|\n")
	sb.WriteString("| `gene_1` | string | First endpoint |\n")
	sb.WriteString("| `gene_2` | string | Second endpoint |\n")
	sb.WriteString("| `corr` | float | Pearson correlation of the two expression profiles |\n")
	sb.WriteString("| `rank` | number | Reciprocal rank of the pair; lower is stronger |\n")
	sb.WriteString("\n## Rank by method\n\n")
	sb.WriteString("| Method | Rank | Format |\n")
	sb.WriteString("|--------|------|--------|\n")
	sb.WriteString("| `hrr` | max of the two directional ranks | integer |\n")
	sb.WriteString("| `mr` | geometric mean of the two directional ranks | float |\n")
	return sb.String()
}
