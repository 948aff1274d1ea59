package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "VOXDESK_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.data_dir", typ: kString, env: "VOXDESK_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.journal_file", typ: kString, env: "VOXDESK_STORAGE_JOURNAL_FILE",
		apply:   func(cfg *Config, v any) { cfg.Storage.JournalFile = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.JournalFile },
	},
	{
		key: "catalog.sources", typ: kString, env: "VOXDESK_CATALOG_SOURCES",
		apply:   func(cfg *Config, v any) { cfg.Catalog.Sources = splitSources(v.(string)) },
		extract: func(cfg Config) any { return joinSources(cfg.Catalog.Sources) },
	},
	{
		key: "lookup.top_k", typ: kInt, env: "VOXDESK_LOOKUP_TOP_K",
		apply:   func(cfg *Config, v any) { cfg.Lookup.TopK = v.(int) },
		extract: func(cfg Config) any { return cfg.Lookup.TopK },
	},
	{
		key: "schema.preset", typ: kString, env: "VOXDESK_SCHEMA_PRESET",
		apply:   func(cfg *Config, v any) { cfg.Schema.Preset = v.(string) },
		extract: func(cfg Config) any { return cfg.Schema.Preset },
	},
	{
		key: "log.level", typ: kString, env: "VOXDESK_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
