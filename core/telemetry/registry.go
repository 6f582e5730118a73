package telemetry

import (
	"github.com/kilianp07/forestplan/core/factory"
)

var storeRegistry = factory.NewRegistry[Store]()

// RegisterStore adds a telemetry store factory identified by name.
func RegisterStore(name string, f factory.Factory[Store]) error {
	return storeRegistry.Register(name, f)
}

// Backends lists the registered store names.
func Backends() []string { return storeRegistry.Names() }

// NewStore creates the store described by cfg. An empty type yields a NopStore.
func NewStore(cfg factory.ModuleConfig) (Store, error) {
	if cfg.Type == "" || cfg.Type == "nop" {
		return NopStore{}, nil
	}
	return storeRegistry.Create(cfg)
}

// FileConfig configures the file backed stores.
type FileConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

func init() {
	storeRegistry.MustRegister("memory", func(map[string]any) (Store, error) {
		return NewMemoryStore(), nil
	})
	storeRegistry.MustRegister("jsonl", func(conf map[string]any) (Store, error) {
		c, err := decodeFile(conf, "telemetry.jsonl")
		if err != nil {
			return nil, err
		}
		return NewJSONLStore(c.Path)
	})
	storeRegistry.MustRegister("rotating", func(conf map[string]any) (Store, error) {
		c, err := decodeFile(conf, "telemetry.jsonl")
		if err != nil {
			return nil, err
		}
		if c.MaxSizeMB <= 0 {
			c.MaxSizeMB = 10
		}
		return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	})
	storeRegistry.MustRegister("sqlite", func(conf map[string]any) (Store, error) {
		c, err := decodeFile(conf, "telemetry.db")
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(c.Path)
	})
}

func decodeFile(conf map[string]any, def string) (FileConfig, error) {
	var c FileConfig
	if err := factory.DecodeStrict(conf, &c); err != nil {
		return c, err
	}
	if c.Path == "" {
		c.Path = def
	}
	return c, nil
}
