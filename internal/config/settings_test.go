package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

// newSearchFlags mirrors the flags registered by the app package
func newSearchFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.BoolP("ignore-case", "i", false, "")
	flags.BoolP("verbose", "v", false, "")
	return flags
}

// newServeFlags mirrors the serve flags registered by the app package
func newServeFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringP("transport", "t", "", "")
	flags.StringP("host", "H", "", "")
	flags.IntP("port", "p", 0, "")
	flags.StringP("root-dir", "r", "", "")
	flags.Int64("max-file-size", 0, "")
	flags.StringP("auth-type", "a", "", "")
	flags.StringP("auth-basic-username", "u", "", "")
	flags.StringP("auth-basic-password", "P", "", "")
	flags.StringSliceP("auth-api-keys", "k", nil, "")
	flags.BoolP("verbose", "v", false, "")
	return flags
}

func unsetCaseEnv(t *testing.T) {
	t.Helper()
	// t.Setenv registers restoration of the original value
	t.Setenv(CaseInsensitiveEnv, "")
	_ = os.Unsetenv(CaseInsensitiveEnv)
}

func TestLoadSettings_Args(t *testing.T) {
	unsetCaseEnv(t)

	settings, err := LoadSettings([]string{"frog", "poem.txt"})
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Query != "frog" {
		t.Errorf("Expected query 'frog', got '%s'", settings.Query)
	}
	if settings.Filename != "poem.txt" {
		t.Errorf("Expected filename 'poem.txt', got '%s'", settings.Filename)
	}
	if !settings.CaseSensitive {
		t.Error("Expected case-sensitive search by default")
	}
}

func TestLoadSettings_ExtraArgsIgnored(t *testing.T) {
	unsetCaseEnv(t)

	settings, err := LoadSettings([]string{"frog", "poem.txt", "extra", "args"})
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}
	if settings.Query != "frog" || settings.Filename != "poem.txt" {
		t.Errorf("Unexpected settings: %+v", settings)
	}
}

func TestLoadSettings_MissingArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
		wantMsg string
	}{
		{"no args", nil, ErrMissingQuery, "didn't get a query string"},
		{"query only", []string{"frog"}, ErrMissingFilename, "didn't get a file name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings, err := LoadSettings(tt.args)
			if settings != nil {
				t.Errorf("Expected nil settings, got %+v", settings)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("Expected a configuration error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected message containing %q, got %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestLoadSettings_CaseInsensitiveEnv(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"set to 1", "1"},
		{"set to false", "false"},
		{"set to empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(CaseInsensitiveEnv, tt.value)

			settings, err := LoadSettings([]string{"q", "f"})
			if err != nil {
				t.Fatalf("Failed to load settings: %v", err)
			}
			if settings.CaseSensitive {
				t.Errorf("Expected presence of %s=%q to disable case sensitivity", CaseInsensitiveEnv, tt.value)
			}
		})
	}
}

func TestLoadSettingsWithFlags_IgnoreCaseFlag(t *testing.T) {
	unsetCaseEnv(t)

	flags := newSearchFlags()
	if err := flags.Parse([]string{"-i"}); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	settings, err := LoadSettingsWithFlags(flags, []string{"q", "f"})
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}
	if settings.CaseSensitive {
		t.Error("Expected --ignore-case to disable case sensitivity")
	}
}

func TestLoadSettingsWithFlags_FlagOverridesEnv(t *testing.T) {
	t.Setenv(CaseInsensitiveEnv, "1")

	flags := newSearchFlags()
	if err := flags.Parse([]string{"--ignore-case=false"}); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	settings, err := LoadSettingsWithFlags(flags, []string{"q", "f"})
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}
	if !settings.CaseSensitive {
		t.Error("Expected explicit --ignore-case=false to override the environment")
	}
}

func TestLoadSettingsWithFlags_UnchangedFlagKeepsEnvRule(t *testing.T) {
	unsetCaseEnv(t)

	flags := newSearchFlags()
	if err := flags.Parse(nil); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	settings, err := LoadSettingsWithFlags(flags, []string{"q", "f"})
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}
	if !settings.CaseSensitive {
		t.Error("Expected case-sensitive search when neither flag nor env is set")
	}
}

func TestLoadSettingsWithFlags_Verbose(t *testing.T) {
	unsetCaseEnv(t)

	flags := newSearchFlags()
	if err := flags.Parse([]string{"-v"}); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	settings, err := LoadSettingsWithFlags(flags, []string{"q", "f"})
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}
	if !settings.Verbose {
		t.Error("Expected verbose to be true")
	}
}

func TestValidateSettings(t *testing.T) {
	if err := ValidateSettings(&Settings{Query: "", Filename: "f"}); err != nil {
		t.Errorf("Expected empty query to be valid, got %v", err)
	}
	if err := ValidateSettings(&Settings{Query: "q"}); !errors.Is(err, ErrMissingFilename) {
		t.Errorf("Expected ErrMissingFilename for empty filename, got %v", err)
	}
}

func TestLoadServeSettings_Defaults(t *testing.T) {
	_ = os.Unsetenv("MINIGREP_PORT")
	_ = os.Unsetenv("MINIGREP_AUTH_TYPE")
	_ = os.Unsetenv("MINIGREP_ROOT_DIR")

	settings, err := LoadServeSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", settings.Port)
	}
	if settings.Auth.Type != AuthTypeNone {
		t.Errorf("Expected default auth type '%s', got '%s'", AuthTypeNone, settings.Auth.Type)
	}
	if settings.Transport != TransportStdio {
		t.Errorf("Expected default transport 'stdio', got '%s'", settings.Transport)
	}
	if settings.Host != "0.0.0.0" {
		t.Errorf("Expected default host '0.0.0.0', got '%s'", settings.Host)
	}
	if settings.RootDir != "." {
		t.Errorf("Expected default root dir '.', got '%s'", settings.RootDir)
	}
	if settings.MaxFileSize != 1024*1024 {
		t.Errorf("Expected default max file size 1MB, got %d", settings.MaxFileSize)
	}
}

func TestLoadServeSettings_EnvVars(t *testing.T) {
	t.Setenv("MINIGREP_PORT", "9090")
	t.Setenv("MINIGREP_AUTH_TYPE", "basic")
	t.Setenv("MINIGREP_AUTH_BASIC_USERNAME", "admin")
	t.Setenv("MINIGREP_ROOT_DIR", "/srv/text")
	t.Setenv("MINIGREP_MAX_FILE_SIZE", "2048")

	settings, err := LoadServeSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", settings.Port)
	}
	if settings.Auth.Type != AuthTypeBasic {
		t.Errorf("Expected auth type '%s', got '%s'", AuthTypeBasic, settings.Auth.Type)
	}
	if settings.Auth.Basic.Username != "admin" {
		t.Errorf("Expected username 'admin', got '%s'", settings.Auth.Basic.Username)
	}
	if settings.RootDir != "/srv/text" {
		t.Errorf("Expected root dir '/srv/text', got '%s'", settings.RootDir)
	}
	if settings.MaxFileSize != 2048 {
		t.Errorf("Expected max file size 2048, got %d", settings.MaxFileSize)
	}
}

func TestLoadServeSettings_APIKeys_EnvVar(t *testing.T) {
	t.Setenv("MINIGREP_AUTH_API_KEYS", "key1, key2,,key3")

	settings, err := LoadServeSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	want := []string{"key1", "key2", "key3"}
	if len(settings.Auth.APIKeys) != len(want) {
		t.Fatalf("Expected %d API keys, got %d: %v", len(want), len(settings.Auth.APIKeys), settings.Auth.APIKeys)
	}
	for i, key := range want {
		if settings.Auth.APIKeys[i] != key {
			t.Errorf("Expected %s, got '%s'", key, settings.Auth.APIKeys[i])
		}
	}
}

func TestLoadServeSettings_EnvFile(t *testing.T) {
	t.Chdir(t.TempDir())

	content := []byte("host=127.0.0.2\nport=7000")
	if err := os.WriteFile(".env", content, 0644); err != nil {
		t.Fatalf("Failed to create .env file: %v", err)
	}

	settings, err := LoadServeSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Host != "127.0.0.2" {
		t.Errorf("Expected host 127.0.0.2, got %s", settings.Host)
	}
	if settings.Port != 7000 {
		t.Errorf("Expected port 7000, got %d", settings.Port)
	}
}

func TestLoadServeSettings_InvalidConfig(t *testing.T) {
	t.Setenv("MINIGREP_PORT", "not-a-number")

	_, err := LoadServeSettings()
	if err == nil {
		t.Fatal("Expected error for invalid port type")
	}
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected a configuration error, got %v", err)
	}
}

func TestLoadServeSettingsWithFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("MINIGREP_PORT", "9090")
	t.Setenv("MINIGREP_TRANSPORT", "stdio")

	flags := newServeFlags()
	if err := flags.Parse([]string{"--port", "7777", "--transport", "sse", "--root-dir", "/data"}); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	settings, err := LoadServeSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 7777 {
		t.Errorf("Expected port 7777 from CLI, got %d", settings.Port)
	}
	if settings.Transport != TransportSSE {
		t.Errorf("Expected transport 'sse' from CLI, got '%s'", settings.Transport)
	}
	if settings.RootDir != "/data" {
		t.Errorf("Expected root dir '/data' from CLI, got '%s'", settings.RootDir)
	}
}

func TestLoadServeSettingsWithFlags_EnvOverridesDefault(t *testing.T) {
	t.Setenv("MINIGREP_HOST", "10.0.0.1")

	settings, err := LoadServeSettingsWithFlags(newServeFlags())
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}
	if settings.Host != "10.0.0.1" {
		t.Errorf("Expected host from env, got '%s'", settings.Host)
	}
}

func TestLoadServeSettingsWithFlags_AuthFlags(t *testing.T) {
	flags := newServeFlags()
	err := flags.Parse([]string{
		"--auth-type", "apikey",
		"--auth-api-keys", "k1,k2",
		"--max-file-size", "4096",
		"--verbose",
	})
	if err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	settings, err := LoadServeSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Auth.Type != AuthTypeAPIKey {
		t.Errorf("Expected auth type apikey, got '%s'", settings.Auth.Type)
	}
	if len(settings.Auth.APIKeys) != 2 {
		t.Errorf("Expected 2 API keys, got %v", settings.Auth.APIKeys)
	}
	if settings.MaxFileSize != 4096 {
		t.Errorf("Expected max file size 4096, got %d", settings.MaxFileSize)
	}
	if !settings.Verbose {
		t.Error("Expected verbose to be true")
	}
}

func TestLoadServeSettings_RootDirExpandHome(t *testing.T) {
	t.Setenv("MINIGREP_ROOT_DIR", "~/notes")

	settings, err := LoadServeSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("No home directory available")
	}
	if settings.RootDir != filepath.Join(home, "notes") {
		t.Errorf("Expected expanded root dir, got '%s'", settings.RootDir)
	}
}

func validServeSettings() *ServeSettings {
	return &ServeSettings{
		Transport:   TransportStdio,
		RootDir:     ".",
		MaxFileSize: 1024,
		Auth:        AuthSettings{Type: AuthTypeNone},
	}
}

func TestValidateServeSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *ServeSettings)
		wantErr string
	}{
		{
			name:   "valid none",
			mutate: func(s *ServeSettings) {},
		},
		{
			name:   "valid empty auth type",
			mutate: func(s *ServeSettings) { s.Auth.Type = "" },
		},
		{
			name:   "valid sse",
			mutate: func(s *ServeSettings) { s.Transport = TransportSSE },
		},
		{
			name: "valid basic",
			mutate: func(s *ServeSettings) {
				s.Auth = AuthSettings{Type: AuthTypeBasic, Basic: BasicAuthSettings{Username: "u", Password: "p"}}
			},
		},
		{
			name:   "valid apikey",
			mutate: func(s *ServeSettings) { s.Auth = AuthSettings{Type: AuthTypeAPIKey, APIKeys: []string{"k"}} },
		},
		{
			name:    "invalid transport",
			mutate:  func(s *ServeSettings) { s.Transport = "http" },
			wantErr: "transport must be",
		},
		{
			name:    "empty root dir",
			mutate:  func(s *ServeSettings) { s.RootDir = "" },
			wantErr: "root-dir cannot be empty",
		},
		{
			name:    "zero max file size",
			mutate:  func(s *ServeSettings) { s.MaxFileSize = 0 },
			wantErr: "max-file-size must be positive",
		},
		{
			name:    "none with basic credentials",
			mutate:  func(s *ServeSettings) { s.Auth.Basic.Username = "u" },
			wantErr: "incompatible",
		},
		{
			name:    "none with api keys",
			mutate:  func(s *ServeSettings) { s.Auth.APIKeys = []string{"k"} },
			wantErr: "incompatible",
		},
		{
			name: "basic missing password",
			mutate: func(s *ServeSettings) {
				s.Auth = AuthSettings{Type: AuthTypeBasic, Basic: BasicAuthSettings{Username: "u"}}
			},
			wantErr: "requires both username and password",
		},
		{
			name: "basic with api keys",
			mutate: func(s *ServeSettings) {
				s.Auth = AuthSettings{Type: AuthTypeBasic, Basic: BasicAuthSettings{Username: "u", Password: "p"}, APIKeys: []string{"k"}}
			},
			wantErr: "mutually exclusive",
		},
		{
			name:    "apikey missing keys",
			mutate:  func(s *ServeSettings) { s.Auth = AuthSettings{Type: AuthTypeAPIKey} },
			wantErr: "requires at least one API key",
		},
		{
			name: "apikey with basic credentials",
			mutate: func(s *ServeSettings) {
				s.Auth = AuthSettings{Type: AuthTypeAPIKey, APIKeys: []string{"k"}, Basic: BasicAuthSettings{Password: "p"}}
			},
			wantErr: "mutually exclusive",
		},
		{
			name:    "unknown auth type",
			mutate:  func(s *ServeSettings) { s.Auth.Type = "oauth" },
			wantErr: "unknown auth-type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validServeSettings()
			tt.mutate(s)

			err := ValidateServeSettings(s)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("Expected a configuration error, got %v", err)
			}
		})
	}
}

func TestExpandHomeDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("No home directory available")
	}

	tests := []struct {
		input string
		want  string
	}{
		{"~/foo", filepath.Join(home, "foo")},
		{"~", home},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
		{"~user/foo", "~user/foo"},
	}

	for _, tt := range tests {
		if got := expandHomeDir(tt.input); got != tt.want {
			t.Errorf("expandHomeDir(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFilterEmptyStrings(t *testing.T) {
	got := filterEmptyStrings([]string{"a", "", "b", ""})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Unexpected result: %v", got)
	}
	if got := filterEmptyStrings(nil); got != nil {
		t.Errorf("Expected nil for nil input, got %v", got)
	}
}
