package app

import "github.com/spf13/pflag"

// RegisterFlags registers the search command flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.BoolP("ignore-case", "i", false, "Match case-insensitively (overrides CASE_INSENSITIVE)")
	flags.BoolP("verbose", "v", false, "Log resolved settings to stderr")
}

// RegisterServeFlags registers the serve command flags on the given FlagSet
func RegisterServeFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	flags.StringP("root-dir", "r", "", "Directory that searched paths are resolved against")
	flags.Int64("max-file-size", 0, "Maximum size in bytes of a searched file")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
}
