package config

import "strings"

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Catalog CatalogConfig
	Lookup  LookupConfig
	Schema  SchemaConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir     string
	JournalFile string // relative names resolve under DataDir
}

type CatalogConfig struct {
	Sources []string // JSON or PDF files, loaded in order
}

type LookupConfig struct {
	TopK int // default result cap for FAQ-style queries
}

type SchemaConfig struct {
	Preset string // record schema served to new sessions
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4300,
		},
		Storage: StorageConfig{
			DataDir:     defaultDataDir(),
			JournalFile: "orders.json",
		},
		Lookup: LookupConfig{
			TopK: 3,
		},
		Schema: SchemaConfig{
			Preset: "coffee_order",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and environment
// variables.
//
// On macOS the backend is UserDefaults (domain: com.voxdesk.app); on Linux it
// is a JSON file at $XDG_CONFIG_HOME/voxdesk/config.json.
//
// Environment variables (VOXDESK_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

// splitSources parses the comma-separated catalog source list used by the
// backend and env override forms.
func splitSources(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinSources(sources []string) string {
	return strings.Join(sources, ",")
}
