// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the loaded diagnostic bundle to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/lo"

	"github.com/starford/diagreplay/internal/apperr"
	"github.com/starford/diagreplay/internal/models"
	"github.com/starford/diagreplay/internal/replay"
	"github.com/starford/diagreplay/internal/routeindex"
)

// Resource URIs.
const (
	CatalogURI      = "diagreplay://catalog"
	BundleFormatURI = "diagreplay://bundle-format"
)

// payloadLimit caps the payload text returned by lookup_route.
const payloadLimit = 64 << 10

// Server wraps the MCP server with replay tools.
type Server struct {
	mcp *server.MCPServer
	svc *replay.Service
}

// New creates a new MCP server with all replay tools registered.
func New(svc *replay.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		replay.ServerName,
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("server_info",
		mcp.WithDescription("Summarize the loaded bundle: target version, source mode and route count."),
	), s.serverInfo)

	s.mcp.AddTool(mcp.NewTool("list_routes",
		mcp.WithDescription("List every replayed route with the catalog API and artifact behind it."),
		mcp.WithString("contains", mcp.Description("Optional substring the route must contain")),
	), s.listRoutes)

	s.mcp.AddTool(mcp.NewTool("lookup_route",
		mcp.WithDescription("Resolve a request path the way the HTTP server does and return the captured payload."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Request path, e.g. /_cluster/health?pretty")),
	), s.lookupRoute)

	s.mcp.AddTool(mcp.NewTool("resolve_api",
		mcp.WithDescription("Show which route and artifact a catalog API resolves to for the bundle version."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Catalog API name, e.g. cluster_health")),
	), s.resolveAPI)

	s.mcp.AddTool(mcp.NewTool("list_artifacts",
		mcp.WithDescription("List artifact files in the diagnostics directory (directory mode only)."),
		mcp.WithString("extension", mcp.Description("File extension filter, default .json")),
	), s.listArtifacts)

	s.mcp.AddResource(
		mcp.NewResource(CatalogURI, "Resolved Catalog",
			mcp.WithResourceDescription("Catalog APIs resolved against the bundle version."),
			mcp.WithMIMEType("application/json"),
		),
		s.readCatalogResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(BundleFormatURI, "Bundle Format",
			mcp.WithResourceDescription("Layout of bundle text files and the route catalog."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readBundleFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) serverInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum := s.svc.Summary()
	snap := s.svc.Snapshot()
	return jsonResult(map[string]any{
		"server":       sum.Server,
		"version":      sum.Version,
		"mode":         sum.Mode,
		"routes_count": sum.RoutesCount,
		"dropped":      snap.Dropped,
	}), nil
}

func (s *Server) listRoutes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contains := req.GetString("contains", "")
	entries := lo.Filter(s.svc.Entries(), func(e routeindex.Entry, _ int) bool {
		return contains == "" || strings.Contains(e.Route, contains)
	})
	if len(entries) == 0 {
		return mcp.NewToolResultText("no routes found"), nil
	}
	lines := lo.Map(entries, func(e routeindex.Entry, _ int) string {
		if e.Name == "" {
			return fmt.Sprintf("%s\t%s", e.Route, e.Source())
		}
		return fmt.Sprintf("%s\t%s\t%s", e.Route, e.Name, e.Source())
	})
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) lookupRoute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := s.svc.Resolve(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError("Route not found: " + path), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	body := truncate(string(resp.Body), payloadLimit)
	header := fmt.Sprintf("route: %s\nmatch: %s\ncontent-type: %s\n\n", resp.Entry.Route, resp.Match, resp.ContentType)
	return mcp.NewToolResultText(header + body), nil
}

// truncate cuts s to at most limit bytes without splitting a UTF-8 sequence.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n... (truncated)"
}

func (s *Server) resolveAPI(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.ResolveAPI(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) listArtifacts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store := s.svc.Snapshot().Store
	if store == nil {
		return mcp.NewToolResultError("artifacts are only listed in directory mode"), nil
	}
	metas, err := store.List("", req.GetString("extension", ".json"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(metas) == 0 {
		return mcp.NewToolResultText("no artifacts found"), nil
	}
	return jsonResult(metas), nil
}

func (s *Server) readCatalogResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	resolutions := s.svc.Snapshot().Resolutions
	if resolutions == nil {
		resolutions = []models.Resolution{}
	}
	text, err := json.MarshalIndent(resolutions, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      CatalogURI,
			MIMEType: "application/json",
			Text:     string(text),
		},
	}, nil
}

func (s *Server) readBundleFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      BundleFormatURI,
			MIMEType: "text/markdown",
			Text:     BundleFormat,
		},
	}, nil
}
