package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/minigrep/internal/config"
	"github.com/sha1n/minigrep/internal/files"
	mcputil "github.com/sha1n/minigrep/internal/mcp"
	"github.com/spf13/pflag"
)

// ServeParams contains dependencies for the serve command
type ServeParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.ServeSettings, error)
	ValidSettings     func(*config.ServeSettings) error
	StartSSEServer    func(*mcp.Server, *config.ServeSettings) error
	CreateServer      func(*config.ServeSettings, string) (*mcp.Server, error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
	Stderr            io.Writer
}

// DefaultServeParams returns production dependencies
func DefaultServeParams() ServeParams {
	return ServeParams{
		LoadSettings:   config.LoadServeSettingsWithFlags,
		ValidSettings:  config.ValidateServeSettings,
		StartSSEServer: StartSSEServer,
		CreateServer:   CreateMCPServer,
		Stderr:         os.Stderr,
	}
}

// RunServeWithDeps runs the MCP server with the provided dependencies
func RunServeWithDeps(ctx context.Context, params ServeParams, flags *pflag.FlagSet, version string) error {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// stdio transport owns stdout, so logs always go to stderr
	slog.SetDefault(newLogger(params.Stderr, settings.Verbose))

	slog.Info("Starting minigrep MCP server", "version", version)
	config.LogServe(settings)

	mcpServer, err := params.CreateServer(settings, version)
	if err != nil {
		return err
	}

	if settings.Transport == config.TransportStdio {
		// Use custom transport if provided (for testing), otherwise use stdio
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return mcpServer.Run(ctx, transport)
	}

	slog.Info("Starting SSE server", "host", settings.Host, "port", settings.Port)
	return params.StartSSEServer(mcpServer, settings)
}

// CreateMCPServer creates the MCP server with the line search tool registered
func CreateMCPServer(settings *config.ServeSettings, version string) (*mcp.Server, error) {
	reader, err := files.NewReader(settings.RootDir, settings.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create file reader: %w", err)
	}

	return mcputil.CreateServer(mcputil.ServerConfig{
		Name:    "minigrep",
		Version: version,
		Reader:  reader,
	}), nil
}
