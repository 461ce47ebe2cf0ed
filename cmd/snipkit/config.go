package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gnana997/snipkit/pkg/dialogue"
)

const defaultConfigPath = ".snipkit/config.yaml"

// ProjectConfig holds the contents of .snipkit/config.yaml.
type ProjectConfig struct {
	// DBPath selects the SQLite store for the catalog and preferences.
	// Without it the catalog comes from CatalogPath and preferences live
	// in memory.
	DBPath string `yaml:"db_path"`
	// CatalogPath is a JSON snapshot. Empty uses the embedded base catalog.
	CatalogPath  string `yaml:"catalog_path"`
	AssetDir     string `yaml:"asset_dir"`
	AssetBaseURL string `yaml:"asset_base_url"`
	// LangDir holds <locale>.yaml string tables merged over the base ones.
	LangDir  string `yaml:"lang_dir"`
	Locale   string `yaml:"locale"`
	LogPath  string `yaml:"log_path"`
	LogLevel string `yaml:"log_level"`
	// CallLogPath enables the JSONL tool call log.
	CallLogPath      string `yaml:"call_log_path"`
	ShowPreview      *bool  `yaml:"show_preview"`
	PreviewCacheSize int    `yaml:"preview_cache_size"`
	MaxSessions      int    `yaml:"max_sessions"`
}

// loadProjectConfig reads the config file at path. A missing file at the
// default location is not an error and yields an empty config; a missing
// file the user named explicitly is.
func loadProjectConfig(path string) (*ProjectConfig, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return &ProjectConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *ProjectConfig) locale() string {
	if c.Locale == "" {
		return "en"
	}
	return c.Locale
}

// dialogueOptions applies the preview settings over the defaults.
func (c *ProjectConfig) dialogueOptions() dialogue.Options {
	opts := dialogue.DefaultOptions()
	if c.ShowPreview != nil {
		opts.ShowPreview = *c.ShowPreview
	}
	if c.PreviewCacheSize > 0 {
		opts.PreviewCacheSize = c.PreviewCacheSize
	}
	return opts
}
