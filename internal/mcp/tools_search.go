package mcp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/minigrep/internal/files"
	"github.com/sha1n/minigrep/internal/search"
)

// SearchLinesArgument defines search_lines parameters.
type SearchLinesArgument struct {
	Query      string `json:"query" jsonschema:"Text to look for; an empty query matches every line"`
	Path       string `json:"path" jsonschema:"File path relative to the server root directory"`
	IgnoreCase bool   `json:"ignore_case,omitempty" jsonschema:"Match case-insensitively"`
}

// SearchLinesHandler handles the search_lines MCP tool.
type SearchLinesHandler struct {
	reader *files.Reader
}

// NewSearchLinesHandler creates a new search_lines handler.
func NewSearchLinesHandler(reader *files.Reader) *SearchLinesHandler {
	return &SearchLinesHandler{
		reader: reader,
	}
}

// Handle searches a single file and returns the matching lines.
func (h *SearchLinesHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchLinesArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Path) == "" {
		return errorResult("Path cannot be empty"), nil, nil
	}

	content, err := h.reader.Read(args.Path)
	if err != nil {
		slog.DebugContext(ctx, "search_lines read failed", "path", args.Path, "error", err)
		return errorResult(readErrorMessage(args.Path, err)), nil, nil
	}

	mode := search.ModeFor(!args.IgnoreCase)
	result := search.Run(mode, args.Query, content)
	slog.DebugContext(ctx, "search_lines complete", "path", args.Path, "mode", mode.String(), "matches", len(result))

	return formatResults(result, args), nil, nil
}

// readErrorMessage maps reader errors to user-facing text.
func readErrorMessage(path string, err error) string {
	switch {
	case errors.Is(err, files.ErrInvalidPath):
		return fmt.Sprintf("Invalid path: %s", err)
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Sprintf("File not found: %s", path)
	case errors.Is(err, files.ErrIsDirectory):
		return "Cannot search a directory, please specify a file path"
	case errors.Is(err, files.ErrTooLarge):
		return fmt.Sprintf("File too large: %s", err)
	case errors.Is(err, files.ErrBinary):
		return "Cannot search binary file content"
	case errors.Is(err, files.ErrInvalidEncoding):
		return fmt.Sprintf("File is not valid UTF-8: %s", path)
	default:
		return fmt.Sprintf("Error reading file: %s", err)
	}
}

// formatResults renders matching lines, one per line, in file order.
func formatResults(result search.MatchResult, args SearchLinesArgument) *mcp.CallToolResult {
	if len(result) == 0 {
		return textResult(fmt.Sprintf("No lines matched: %s", args.Query))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d matching lines in %s:\n\n", len(result), args.Path)
	for _, line := range result {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return textResult(sb.String())
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	result := textResult(text)
	result.IsError = true
	return result
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchLinesHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_lines",
		Description: "Return every line of a file that contains the query as a plain substring",
	}
}

// RegisterSearchLinesTool registers the search_lines tool with an MCP server.
func RegisterSearchLinesTool(server *mcp.Server, reader *files.Reader) {
	handler := NewSearchLinesHandler(reader)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
