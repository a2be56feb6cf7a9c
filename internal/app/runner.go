package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sha1n/minigrep/internal/config"
	"github.com/sha1n/minigrep/internal/files"
	"github.com/sha1n/minigrep/internal/search"
	"github.com/spf13/pflag"
)

// RunParams contains dependencies for a search run
type RunParams struct {
	LoadSettings  func(*pflag.FlagSet, []string) (*config.Settings, error)
	ValidSettings func(*config.Settings) error
	ReadFile      func(string) (string, error)
	Stdout        io.Writer // Matching lines
	Stderr        io.Writer // Logs
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:  config.LoadSettingsWithFlags,
		ValidSettings: config.ValidateSettings,
		ReadFile:      files.Read,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
	}
}

// RunWithDeps searches the configured file and writes every matching line to
// params.Stdout. Configuration errors are returned before any file is read.
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, args []string) error {
	settings, err := params.LoadSettings(flags, args)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(params.Stderr, settings.Verbose)
	config.LogWithLogger(settings, logger)

	content, err := params.ReadFile(settings.Filename)
	if err != nil {
		return fmt.Errorf("application error: %w", err)
	}

	mode := search.ModeFor(settings.CaseSensitive)
	result := search.Run(mode, settings.Query, content)
	logger.DebugContext(ctx, "Search complete", "mode", mode.String(), "matches", len(result))

	return writeLines(params.Stdout, result)
}

func writeLines(w io.Writer, lines search.MatchResult) error {
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

// newLogger always writes to stderr (or the given writer) so stdout only carries results
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: config.LogLevel(verbose)})
	return slog.New(handler)
}
