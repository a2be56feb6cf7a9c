package main

import (
	"context"
	"os"

	"github.com/sha1n/minigrep/internal/app"
	"github.com/spf13/cobra"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "minigrep"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	rootCmd := NewRootCommand(version, programName)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// NewRootCommand builds the command tree. Output and error streams follow
// the command's configured writers so tests can capture them.
func NewRootCommand(version, programName string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   programName + " [flags] QUERY FILENAME",
		Short: "Print the lines of a file that contain a query",
		Long: `Print every line of FILENAME that contains QUERY as a plain substring.

Matching is case-sensitive unless the CASE_INSENSITIVE environment variable
is present (any value) or --ignore-case is given. Use "--" before QUERY to
search for a word that is also a subcommand name.`,
		Version:      version,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := app.DefaultRunParams()
			params.Stdout = cmd.OutOrStdout()
			params.Stderr = cmd.ErrOrStderr()
			return app.RunWithDeps(context.Background(), params, cmd.Flags(), args)
		},
	}

	rootCmd.SetVersionTemplate(`{{.Version}}
`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	app.RegisterFlags(rootCmd.Flags())
	rootCmd.AddCommand(newServeCommand(version))

	return rootCmd
}

func newServeCommand(version string) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve line search as an MCP tool",
		Long:  "Run an MCP server exposing the search_lines tool over stdio or SSE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := app.DefaultServeParams()
			params.Stderr = cmd.ErrOrStderr()
			return app.RunServeWithDeps(context.Background(), params, cmd.Flags(), version)
		},
	}

	app.RegisterServeFlags(serveCmd.Flags())
	return serveCmd
}
