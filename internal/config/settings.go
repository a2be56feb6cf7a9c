package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// CaseInsensitiveEnv is the environment variable whose presence, regardless
// of its value, switches searching to case-insensitive mode.
const CaseInsensitiveEnv = "CASE_INSENSITIVE"

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// Transport constants
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// ErrConfiguration is the parent of every settings error.
var ErrConfiguration = errors.New("configuration error")

var (
	// ErrMissingQuery is returned when no query argument is given.
	ErrMissingQuery = fmt.Errorf("%w: didn't get a query string", ErrConfiguration)

	// ErrMissingFilename is returned when no file name argument is given.
	ErrMissingFilename = fmt.Errorf("%w: didn't get a file name", ErrConfiguration)
)

// Settings for a single search run
type Settings struct {
	Query         string
	Filename      string
	CaseSensitive bool
	Verbose       bool
}

// AuthSettings configuration for authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// ServeSettings configuration for the MCP server
type ServeSettings struct {
	Transport   string       `mapstructure:"transport"`
	Host        string       `mapstructure:"host"`
	Port        int          `mapstructure:"port"`
	RootDir     string       `mapstructure:"root_dir"`
	MaxFileSize int64        `mapstructure:"max_file_size"`
	Auth        AuthSettings `mapstructure:"auth"`
	Verbose     bool         `mapstructure:"verbose"`
}

// LoadSettings resolves search settings from positional args and the environment.
func LoadSettings(args []string) (*Settings, error) {
	return LoadSettingsWithFlags(nil, args)
}

// LoadSettingsWithFlags resolves search settings from positional args, the
// environment and optional CLI flags. Extra positional args are ignored.
//
// Searching is case-sensitive unless CASE_INSENSITIVE is present in the
// environment. An explicit --ignore-case flag overrides the environment.
func LoadSettingsWithFlags(flags *pflag.FlagSet, args []string) (*Settings, error) {
	if len(args) < 1 {
		return nil, ErrMissingQuery
	}
	if len(args) < 2 {
		return nil, ErrMissingFilename
	}

	v := viper.New()
	v.AllowEmptyEnv(true)
	_ = v.BindEnv("case_insensitive", CaseInsensitiveEnv)
	_ = v.BindEnv("verbose", "MINIGREP_VERBOSE")

	if flags != nil {
		_ = v.BindPFlag("case_insensitive", flags.Lookup("ignore-case"))
		_ = v.BindPFlag("verbose", flags.Lookup("verbose"))
	}

	// A changed flag carries its own value; otherwise only presence of the
	// environment variable counts.
	caseInsensitive := v.IsSet("case_insensitive")
	if flags != nil && flags.Changed("ignore-case") {
		caseInsensitive = v.GetBool("case_insensitive")
	}

	return &Settings{
		Query:         args[0],
		Filename:      args[1],
		CaseSensitive: !caseInsensitive,
		Verbose:       v.GetBool("verbose"),
	}, nil
}

// LoadServeSettings loads server settings from environment variables and optional .env file
func LoadServeSettings() (*ServeSettings, error) {
	return LoadServeSettingsWithFlags(nil)
}

// LoadServeSettingsWithFlags loads server settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadServeSettingsWithFlags(flags *pflag.FlagSet) (*ServeSettings, error) {
	v := viper.New()

	v.SetDefault("transport", TransportStdio)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("root_dir", ".")
	v.SetDefault("max_file_size", int64(1024*1024)) // 1MB
	v.SetDefault("auth.type", AuthTypeNone)
	v.SetDefault("verbose", false)

	v.SetEnvPrefix("MINIGREP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("root_dir", "MINIGREP_ROOT_DIR")
	_ = v.BindEnv("max_file_size", "MINIGREP_MAX_FILE_SIZE")
	_ = v.BindEnv("auth.type", "MINIGREP_AUTH_TYPE")
	_ = v.BindEnv("auth.basic.username", "MINIGREP_AUTH_BASIC_USERNAME")
	_ = v.BindEnv("auth.basic.password", "MINIGREP_AUTH_BASIC_PASSWORD")
	_ = v.BindEnv("auth.api_keys", "MINIGREP_AUTH_API_KEYS")

	if flags != nil {
		_ = v.BindPFlag("transport", flags.Lookup("transport"))
		_ = v.BindPFlag("host", flags.Lookup("host"))
		_ = v.BindPFlag("port", flags.Lookup("port"))
		_ = v.BindPFlag("root_dir", flags.Lookup("root-dir"))
		_ = v.BindPFlag("max_file_size", flags.Lookup("max-file-size"))
		_ = v.BindPFlag("auth.type", flags.Lookup("auth-type"))
		_ = v.BindPFlag("auth.basic.username", flags.Lookup("auth-basic-username"))
		_ = v.BindPFlag("auth.basic.password", flags.Lookup("auth-basic-password"))
		_ = v.BindPFlag("auth.api_keys", flags.Lookup("auth-api-keys"))
		_ = v.BindPFlag("verbose", flags.Lookup("verbose"))
	}

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings ServeSettings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	// API keys from the env var arrive as a single comma-separated string
	apiKeysEnv := os.Getenv("MINIGREP_AUTH_API_KEYS")
	if apiKeysEnv != "" {
		if len(settings.Auth.APIKeys) == 0 || (len(settings.Auth.APIKeys) == 1 && strings.Contains(settings.Auth.APIKeys[0], ",")) {
			settings.Auth.APIKeys = strings.Split(apiKeysEnv, ",")
		}
	}

	for i := range settings.Auth.APIKeys {
		settings.Auth.APIKeys[i] = strings.TrimSpace(settings.Auth.APIKeys[i])
	}
	settings.Auth.APIKeys = filterEmptyStrings(settings.Auth.APIKeys)

	settings.RootDir = expandHomeDir(settings.RootDir)

	return &settings, nil
}

// ValidateSettings checks that a search run has everything it needs.
func ValidateSettings(s *Settings) error {
	if s.Filename == "" {
		return ErrMissingFilename
	}
	return nil
}

// ValidateServeSettings checks for conflicting configurations.
// Returns an error if the settings contain mutually exclusive or incomplete auth config.
func ValidateServeSettings(s *ServeSettings) error {
	switch s.Transport {
	case TransportStdio, TransportSSE:
		// valid
	default:
		return configError("transport must be 'stdio' or 'sse', got: " + s.Transport)
	}

	if s.RootDir == "" {
		return configError("root-dir cannot be empty")
	}
	if s.MaxFileSize <= 0 {
		return configError("max-file-size must be positive")
	}

	hasBasicCreds := s.Auth.Basic.Username != "" || s.Auth.Basic.Password != ""
	hasAPIKeys := len(s.Auth.APIKeys) > 0

	switch s.Auth.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return configError("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return configError("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if s.Auth.Basic.Username == "" || s.Auth.Basic.Password == "" {
			return configError("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return configError("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return configError("auth-type 'apikey' requires at least one API key")
		}
	default:
		return configError("unknown auth-type: " + s.Auth.Type)
	}

	return nil
}

func configError(msg string) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, msg)
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}
