package config

import (
	"context"
	"log/slog"
)

// Log logs the resolved search settings
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved search settings using the provided logger.
// Search runs log at debug level since stdout carries the results.
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.DebugContext(ctx, "Config: query", "value", s.Query)
	logger.DebugContext(ctx, "Config: filename", "value", s.Filename)
	logger.DebugContext(ctx, "Config: case_sensitive", "value", s.CaseSensitive)
}

// LogServe logs the resolved server settings in a granular way, skipping irrelevant ones
func LogServe(s *ServeSettings) {
	LogServeWithLogger(s, slog.Default())
}

// LogServeWithLogger logs the resolved server settings using the provided logger
func LogServeWithLogger(s *ServeSettings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: transport", "value", s.Transport)
	if s.Transport == TransportSSE {
		logger.InfoContext(ctx, "Config: host", "value", s.Host)
		logger.InfoContext(ctx, "Config: port", "value", s.Port)
	}
	logger.InfoContext(ctx, "Config: root_dir", "value", s.RootDir)
	logger.InfoContext(ctx, "Config: max_file_size", "value", s.MaxFileSize)

	logger.InfoContext(ctx, "Config: auth.type", "value", s.Auth.Type)
	switch s.Auth.Type {
	case AuthTypeBasic:
		logger.InfoContext(ctx, "Config: auth.basic.username", "value", s.Auth.Basic.Username)
		logger.InfoContext(ctx, "Config: auth.basic.password", "value", "****")
	case AuthTypeAPIKey:
		logger.InfoContext(ctx, "Config: auth.api_keys", "count", len(s.Auth.APIKeys))
	}
}

// AuthSettingsLogValue returns a slog.Value for AuthSettings with masked data
func AuthSettingsLogValue(s AuthSettings) slog.Value {
	keys := make([]string, len(s.APIKeys))
	for i := range s.APIKeys {
		keys[i] = "****"
	}
	return slog.GroupValue(
		slog.String("type", s.Type),
		slog.Any("basic", BasicAuthSettingsLogValue(s.Basic)),
		slog.Any("api_keys", keys),
	)
}

// BasicAuthSettingsLogValue returns a slog.Value for BasicAuthSettings with masked data
func BasicAuthSettingsLogValue(s BasicAuthSettings) slog.Value {
	return slog.GroupValue(
		slog.String("username", s.Username),
		slog.String("password", "****"),
	)
}

// ServeSettingsLogValue returns a slog.Value for ServeSettings with masked data
func ServeSettingsLogValue(s ServeSettings) slog.Value {
	return slog.GroupValue(
		slog.String("transport", s.Transport),
		slog.String("host", s.Host),
		slog.Int("port", s.Port),
		slog.String("root_dir", s.RootDir),
		slog.Int64("max_file_size", s.MaxFileSize),
		slog.Any("auth", AuthSettingsLogValue(s.Auth)),
	)
}

// LogLevel returns the slog level for the verbosity setting.
func LogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
