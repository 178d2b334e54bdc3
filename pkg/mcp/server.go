package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/syntlyx/drupal-lsp-server/pkg/index"
	"github.com/syntlyx/drupal-lsp-server/pkg/rank"
	"github.com/syntlyx/drupal-lsp-server/pkg/workspace"
)

// MCPServer exposes a scanned workspace to MCP clients, so an agent
// can ask about services and routes the same way the editor does.
type MCPServer struct {
	ws *workspace.Workspace
}

// Run starts the MCP server on Stdio.
func Run(ctx context.Context, ws *workspace.Workspace) error {
	s := server.NewMCPServer(
		"Drupal-Index",
		"0.1.0",
		server.WithResourceCapabilities(true, true),
		server.WithLogging(),
	)

	ms := &MCPServer{ws: ws}

	// --- Resources ---

	s.AddResource(
		mcp.NewResource(
			"drupal://index/summary",
			"Index Summary",
			mcp.WithResourceDescription("Per-kind entity counts for the scanned project"),
			mcp.WithMIMEType("application/json"),
		),
		ms.handleIndexSummary,
	)

	// Pattern: drupal://entity/{name}
	s.AddResource(
		mcp.NewResource(
			"drupal://entity/{name}",
			"Entity Definition",
			mcp.WithResourceDescription("Attributes of one indexed service, route or link"),
			mcp.WithMIMEType("application/json"),
		),
		ms.handleEntityResource,
	)

	s.AddResource(
		mcp.NewResource(
			"drupal://schema/conventions",
			"Index Conventions",
			mcp.WithResourceDescription("Entity kinds, tiers and attribute naming used by the index"),
			mcp.WithMIMEType("text/markdown"),
		),
		ms.handleConventions,
	)

	// --- Tools ---

	s.AddTool(
		mcp.NewTool(
			"lookup_entity",
			mcp.WithDescription("Look one name up across services, routes and menu links."),
			mcp.WithString("name", mcp.Required(), mcp.Description("The exact entity name")),
		),
		ms.handleLookupEntity,
	)

	s.AddTool(
		mcp.NewTool(
			"list_entities",
			mcp.WithDescription("List indexed entity names of one kind."),
			mcp.WithString("kind", mcp.Required(), mcp.Description("service, route or link")),
			mcp.WithNumber("limit", mcp.Description("Max number of results (default 50)")),
		),
		ms.handleListEntities,
	)

	s.AddTool(
		mcp.NewTool(
			"search_entities",
			mcp.WithDescription("Search entities by name prefix or fragment, best matches first."),
			mcp.WithString("query", mcp.Required(), mcp.Description("The search query string")),
			mcp.WithString("kind", mcp.Description("Restrict to service, route or link")),
			mcp.WithNumber("limit", mcp.Description("Max number of results (default 10)")),
		),
		ms.handleSearchEntities,
	)

	s.AddTool(
		mcp.NewTool(
			"validate_reference",
			mcp.WithDescription("Check whether a referenced name resolves, with a suggestion when it does not."),
			mcp.WithString("name", mcp.Required(), mcp.Description("The referenced entity name")),
			mcp.WithString("kind", mcp.Description("service, route or link (default service)")),
		),
		ms.handleValidateReference,
	)

	slog.Info("Starting MCP server on Stdio")
	return server.ServeStdio(s)
}

func parseKind(raw string) (index.Kind, bool) {
	switch raw {
	case string(index.KindService), string(index.KindRoute), string(index.KindLink):
		return index.Kind(raw), true
	}
	return "", false
}

func entityJSON(e index.Entity) (string, error) {
	meta := map[string]interface{}{
		"kind":        string(e.Kind),
		"name":        e.Name,
		"tier":        e.Tier.String(),
		"source_file": e.SourceFile,
		"source_line": e.SourceLine,
	}
	put := func(key, value string) {
		if value != "" {
			meta[key] = value
		}
	}
	put("class", e.Class)
	put("parent", e.Parent)
	put("factory", e.Factory)
	put("alias", e.Alias)
	put("path", e.Path)
	put("controller", e.Controller)
	put("permission", e.Permission)
	put("title", e.Title)
	put("route_name", e.RouteName)
	if len(e.Arguments) > 0 {
		meta["arguments"] = e.Arguments
	}
	if len(e.AppearsOn) > 0 {
		meta["appears_on"] = e.AppearsOn
	}
	if len(e.Extra) > 0 {
		meta["extra"] = e.Extra
	}

	jsonBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal entity: %w", err)
	}
	return string(jsonBytes), nil
}

// --- Resource Handlers ---

func (ms *MCPServer) handleIndexSummary(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	summary := map[string]interface{}{
		"root":      ms.ws.Config().Root,
		"populated": ms.ws.IsPopulated(),
		"total":     ms.ws.Index().Len(),
		"services":  len(ms.ws.ListAllNames(index.KindService)),
		"routes":    len(ms.ws.ListAllNames(index.KindRoute)),
		"links":     len(ms.ws.ListAllNames(index.KindLink)),
	}

	jsonBytes, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

func (ms *MCPServer) handleEntityResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uriStr := request.Params.URI
	prefix := "drupal://entity/"
	if !strings.HasPrefix(uriStr, prefix) {
		return nil, fmt.Errorf("invalid URI format")
	}
	name := strings.TrimPrefix(uriStr, prefix)

	e, ok := ms.ws.LookupByName(name)
	if !ok {
		return nil, fmt.Errorf("entity not found: %s", name)
	}

	text, err := entityJSON(e)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     text,
		},
	}, nil
}

func (ms *MCPServer) handleConventions(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	content := `
# Drupal Index Conventions

## 1. Entity Kinds
- 'service': a container service from a *.services.yml file.
- 'route': a route from a *.routing.yml file.
- 'link': a menu link from a *.links.menu.yml, *.links.task.yml or *.links.action.yml file.

## 2. Tiers
Definitions are classified by where they live, highest trust first:
- 'custom': under modules/custom/
- 'contrib': under modules/contrib/
- 'core': under core/
- 'unknown': anywhere else

The same name can be defined at several tiers; lookups return the
definition from the most recently scanned file.

## 3. Usage Guidelines
- To resolve a '@name' argument or a Drupal::service() call, use lookup_entity.
- To explore what a module provides, use search_entities with the module's name as the query.
- Dynamic names (plugin.manager.*, logger.channel.*, cache_context.*, keyvalue*) may be valid without being indexed; validate_reference accounts for that.
`
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/markdown",
			Text:     content,
		},
	}, nil
}

// --- Tool Handlers ---

func (ms *MCPServer) handleLookupEntity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	name, ok := args["name"].(string)
	if !ok {
		return mcp.NewToolResultError("name argument required"), nil
	}

	e, found := ms.ws.LookupByName(name)
	if !found {
		return mcp.NewToolResultText("not found: " + name), nil
	}

	text, err := entityJSON(e)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (ms *MCPServer) handleListEntities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	rawKind, ok := args["kind"].(string)
	if !ok {
		return mcp.NewToolResultError("kind argument required"), nil
	}
	kind, ok := parseKind(rawKind)
	if !ok {
		return mcp.NewToolResultError("unknown kind: " + rawKind), nil
	}

	limit := 50
	if l, ok := args["limit"].(float64); ok {
		limit = int(l)
	}

	names := ms.ws.ListAllNames(kind)
	truncated := false
	if len(names) > limit {
		names = names[:limit]
		truncated = true
	}
	if len(names) == 0 {
		return mcp.NewToolResultText("No entities indexed for kind " + rawKind + "."), nil
	}

	out := strings.Join(names, "\n")
	if truncated {
		out += "\n... (truncated)"
	}
	return mcp.NewToolResultText(out), nil
}

func (ms *MCPServer) handleSearchEntities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	query, ok := args["query"].(string)
	if !ok {
		return mcp.NewToolResultError("query argument required"), nil
	}

	kind := index.Kind("")
	if rawKind, ok := args["kind"].(string); ok && rawKind != "" {
		k, valid := parseKind(rawKind)
		if !valid {
			return mcp.NewToolResultError("unknown kind: " + rawKind), nil
		}
		kind = k
	}

	limit := 10
	if l, ok := args["limit"].(float64); ok {
		limit = int(l)
	}

	ranked := rank.Rank(ms.ws.ListAll(kind), query)
	var formatted []string
	for _, e := range ranked {
		if !strings.Contains(e.Name, query) {
			continue
		}
		formatted = append(formatted, fmt.Sprintf("%s (%s, %s)", e.Name, e.Kind, e.Tier))
		if len(formatted) >= limit {
			break
		}
	}
	if len(formatted) == 0 {
		return mcp.NewToolResultText("No entities match."), nil
	}
	return mcp.NewToolResultText(strings.Join(formatted, "\n")), nil
}

func (ms *MCPServer) handleValidateReference(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	name, ok := args["name"].(string)
	if !ok {
		return mcp.NewToolResultError("name argument required"), nil
	}

	kind := index.KindService
	if rawKind, ok := args["kind"].(string); ok && rawKind != "" {
		k, valid := parseKind(rawKind)
		if !valid {
			return mcp.NewToolResultError("unknown kind: " + rawKind), nil
		}
		kind = k
	}

	problem := ms.ws.Resolver().Validate(kind, name)
	if problem == nil {
		return mcp.NewToolResultText("ok: '" + name + "' resolves"), nil
	}
	return mcp.NewToolResultText(problem.Message), nil
}
