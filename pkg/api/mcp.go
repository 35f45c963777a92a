package api

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/electoral-roll/pkg/kit"
	"github.com/hazyhaar/electoral-roll/pkg/roll"
	"github.com/hazyhaar/electoral-roll/pkg/search"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPTools registers the roll's MCP tools on the server. pageSize
// applies to searches that do not pass page_size.
func RegisterMCPTools(srv *server.MCPServer, r *roll.Roll, pageSize int, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if pageSize < 1 {
		pageSize = search.DefaultPageSize
	}
	registerSearchVoters(srv, r, pageSize, logger)
	registerListFacets(srv, r, logger)
	registerGetVoter(srv, r, logger)
}

func registerSearchVoters(srv *server.MCPServer, r *roll.Roll, pageSize int, logger *slog.Logger) {
	tool := mcp.NewTool("search_voters",
		mcp.WithDescription("Search the electoral roll by name or voter ID, optionally filtered by booth, polling station or village. Results are paginated."),
		mcp.WithString("search", mcp.Description("Whitespace-separated terms; every term must appear in the name or voter ID")),
		mcp.WithString("booth", mcp.Description("Booth number substring (case-sensitive)")),
		mcp.WithString("station", mcp.Description("Polling station address substring")),
		mcp.WithString("village", mcp.Description("Village substring")),
		mcp.WithString("sort", mcp.Description("Sort order: name or serial; empty keeps roll order")),
		mcp.WithNumber("page", mcp.Description("1-based page number (default 1)")),
		mcp.WithNumber("page_size", mcp.Description("Rows per page (default from the server's page_size)")),
		mcp.WithString("operator", mcp.Description("Who is asking; recorded in the server log only")),
	)

	ep := kit.Logging(logger, "search_voters")(queryVotersEndpoint(r, pageSize))
	kit.RegisterMCPTool(srv, tool, ep, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		q := decodeSearchArgs(args)
		res := &kit.MCPDecodeResult{Request: &q}
		if op, _ := args["operator"].(string); op != "" {
			res.EnrichCtx = func(ctx context.Context) context.Context {
				return kit.WithOperator(ctx, op)
			}
		}
		return res, nil
	})
}

func registerListFacets(srv *server.MCPServer, r *roll.Roll, logger *slog.Logger) {
	tool := mcp.NewTool("list_facets",
		mcp.WithDescription("List the distinct booth numbers, polling station addresses and villages in the roll, with the total voter count."),
	)

	ep := kit.Logging(logger, "list_facets")(listFacetsEndpoint(r))
	kit.RegisterMCPTool(srv, tool, ep, func(_ mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	})
}

func registerGetVoter(srv *server.MCPServer, r *roll.Roll, logger *slog.Logger) {
	tool := mcp.NewTool("get_voter",
		mcp.WithDescription("Fetch one voter record by its record id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id as returned by search_voters")),
	)

	ep := kit.Logging(logger, "get_voter")(getVoterEndpoint(r))
	kit.RegisterMCPTool(srv, tool, ep, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		id, _ := req.GetArguments()["id"].(string)
		if id == "" {
			return nil, badRequest("id is required")
		}
		return &kit.MCPDecodeResult{Request: id}, nil
	})
}

// decodeSearchArgs maps MCP tool arguments onto a query. JSON numbers arrive
// as float64; anything unparseable is left at its zero value.
func decodeSearchArgs(args map[string]any) search.Query {
	str := func(k string) string {
		s, _ := args[k].(string)
		return s
	}
	num := func(k string) int {
		switch v := args[k].(type) {
		case float64:
			return int(v)
		case int:
			return v
		}
		return 0
	}

	q := search.Query{
		Search:   str("search"),
		Sort:     str("sort"),
		Page:     num("page"),
		PageSize: num("page_size"),
	}
	f := search.Filters{}
	if s := str("booth"); s != "" {
		f[search.FilterBoothNumber] = s
	}
	if s := str("station"); s != "" {
		f[search.FilterPollingStationAddress] = s
	}
	if s := str("village"); s != "" {
		f[search.FilterVillage] = s
	}
	if len(f) > 0 {
		q.Filters = f
	}
	return q
}
