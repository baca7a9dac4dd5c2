// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes petpad tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"

	"github.com/starford/petpad/internal/apperr"
	"github.com/starford/petpad/internal/editor"
	"github.com/starford/petpad/internal/filter"
	"github.com/starford/petpad/internal/models"
	"github.com/starford/petpad/internal/vars"
)

const (
	formatURI     = "petpad://snippet-format"
	defaultLimit  = 20
	serverVersion = "1.0.0"
)

// Server wraps the MCP server with petpad tools.
type Server struct {
	mcp *server.MCPServer
	svc *editor.Service
}

// New creates a new MCP server with all petpad tools registered.
func New(svc *editor.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"petpad",
		serverVersion,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List the snippet documents in the vault with their snippet counts."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read every snippet of a vault document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. work/git.toml)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("search_snippets",
		mcp.WithDescription("Fuzzy search over the description and command of every snippet in the vault, "+
			"optionally restricted by tags."),
		mcp.WithString("query", mcp.Description("Search text; typos are tolerated")),
		mcp.WithString("tags", mcp.Description("Comma separated tags")),
		mcp.WithString("mode", mcp.Description("Tag match mode"), mcp.Enum("any", "all")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchSnippets)

	s.mcp.AddTool(mcp.NewTool("parse_variables",
		mcp.WithDescription("Parse the <name=default> placeholders of a command template."),
		mcp.WithString("command", mcp.Required(), mcp.Description("Command template")),
	), s.parseVariables)

	s.mcp.AddTool(mcp.NewTool("fill_command",
		mcp.WithDescription("Set default values of placeholders and return the rewritten template. "+
			"Only the first occurrence of each name carries the default."),
		mcp.WithString("command", mcp.Required(), mcp.Description("Command template")),
		mcp.WithObject("values", mcp.Required(), mcp.Description("Placeholder name to new default value")),
	), s.fillCommand)

	s.mcp.AddTool(mcp.NewTool("interpolate_command",
		mcp.WithDescription("Substitute placeholders with values and return a runnable command. "+
			"Without values the placeholder defaults are used."),
		mcp.WithString("command", mcp.Required(), mcp.Description("Command template")),
		mcp.WithObject("values", mcp.Description("Placeholder name to value")),
	), s.interpolateCommand)

	s.mcp.AddTool(mcp.NewTool("add_snippet",
		mcp.WithDescription("Append a snippet to a vault document and save it, creating the document if needed. "+
			"Read the contract first via the get_format_contract tool or the "+formatURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (must end with .toml)")),
		mcp.WithString("command", mcp.Required(), mcp.Description("Command template")),
		mcp.WithString("description", mcp.Description("Short human description")),
		mcp.WithString("output", mcp.Description("Example output")),
		mcp.WithString("tags", mcp.Description("Comma separated tags")),
	), s.addSnippet)

	s.mcp.AddTool(mcp.NewTool("get_format_contract",
		mcp.WithDescription("Returns the petpad document and placeholder format contract. "+
			"Call this before adding snippets to ensure correct structure."),
	), s.getFormatContract)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Snippet Format Contract",
			mcp.WithResourceDescription("Document layout and placeholder grammar of petpad snippets."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func (s *Server) listDocuments(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.svc.Documents(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(docs)
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snippets, err := s.svc.ReadDocument(ctx, path)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(snippets)
}

func (s *Server) searchSnippets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := filter.ParseMatchMode(req.GetString("mode", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	q := filter.Query{
		Tags: splitTags(req.GetString("tags", "")),
		Mode: mode,
		Text: req.GetString("query", ""),
	}
	limit := req.GetInt("limit", defaultLimit)
	results, err := s.svc.Search(ctx, q, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

type parseResult struct {
	Variables []vars.Variable `json:"variables"`
	Positions []vars.Position `json:"positions"`
}

func (s *Server) parseVariables(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p := s.svc.Parser()
	return jsonResult(parseResult{Variables: p.Parse(command), Positions: p.Positions(command)})
}

// values reads the "values" object argument. Non-string JSON values are
// coerced to strings.
func values(req mcp.CallToolRequest) (map[string]string, error) {
	raw, ok := req.GetArguments()["values"]
	if !ok || raw == nil {
		return nil, nil
	}
	return cast.ToStringMapStringE(raw)
}

func (s *Server) fillCommand(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	vals, err := values(req)
	if err != nil {
		return mcp.NewToolResultError("values: " + err.Error()), nil
	}
	variables := s.svc.Parser().Parse(command)
	for i, v := range variables {
		val, ok := vals[v.Name]
		if !ok {
			continue
		}
		variables[i].IsList = false
		variables[i].ListValues = nil
		variables[i].Value = val
	}
	return mcp.NewToolResultText(vars.UpdateCommand(command, variables)), nil
}

func (s *Server) interpolateCommand(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	vals, err := values(req)
	if err != nil {
		return mcp.NewToolResultError("values: " + err.Error()), nil
	}
	if vals == nil {
		vals = vars.Defaults(s.svc.Parser().Parse(command))
	}
	return mcp.NewToolResultText(vars.Interpolate(command, vals)), nil
}

func (s *Server) addSnippet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	command, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sn := models.Snippet{
		Description: req.GetString("description", ""),
		Command:     command,
		Output:      req.GetString("output", ""),
		Tags:        splitTags(req.GetString("tags", "")),
	}
	d, err := s.svc.AppendSnippet(ctx, path, sn)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added: %s #%d", d.Name, len(d.Snippets)-1)), nil
}

func (s *Server) getFormatContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SnippetFormatContract), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     SnippetFormatContract,
		},
	}, nil
}
