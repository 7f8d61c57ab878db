// Package config loads the service configuration from YAML.
package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/askdb-go/internal/domain"
	"github.com/doeshing/askdb-go/internal/pkg/filesystem"
	"github.com/doeshing/askdb-go/internal/ports"
)

// FileLoader loads YAML configuration from ~/.askdb/config.yaml (overridable
// via ASKDB_CONFIG). A missing file is written with defaults on first load.
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.resolvePath()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := defaultConfig()
			if err := writeDefault(path, cfg); err != nil {
				return domain.Config{}, err
			}
			return cfg, nil
		}
		return domain.Config{}, err
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, err
	}

	return hydrateDefaults(cfg), nil
}

func (l *FileLoader) resolvePath() string {
	if l.overridePath != "" {
		return l.overridePath
	}
	if custom := os.Getenv("ASKDB_CONFIG"); custom != "" {
		return expandPath(custom)
	}
	return filepath.Join(filesystem.UserHomeDir(), ".askdb", "config.yaml")
}

func ensureConfigDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func writeDefault(path string, cfg domain.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func defaultConfig() domain.Config {
	return hydrateDefaults(domain.Config{ConfigFormatVersion: "1"})
}

// hydrateDefaults fills every zero-valued field so partial user files stay
// valid across upgrades.
func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.LLM.Endpoint == "" {
		cfg.LLM.Endpoint = "http://localhost:8000/v1/chat/completions"
	}
	if cfg.LLM.ModelID == "" {
		cfg.LLM.ModelID = "/model"
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 4096
	}
	if cfg.LLM.ClassifyTimeout == 0 {
		cfg.LLM.ClassifyTimeout = 10
	}
	if cfg.LLM.GenerateTimeout == 0 {
		cfg.LLM.GenerateTimeout = 15
	}
	if cfg.LLM.AnswerTimeout == 0 {
		cfg.LLM.AnswerTimeout = 300
	}
	if cfg.Retrieval.DefaultTopK == 0 {
		cfg.Retrieval.DefaultTopK = 30
	}
	if cfg.Retrieval.LookupTopK == 0 {
		cfg.Retrieval.LookupTopK = 50
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = filepath.Join(filesystem.UserHomeDir(), ".askdb", "data.db")
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 7860
	}
	if cfg.Server.MaxConcurrentLLM == 0 {
		cfg.Server.MaxConcurrentLLM = 64
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	return cfg
}

func expandPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if len(path) > 1 && path[:2] == "~/" {
		return filepath.Join(filesystem.UserHomeDir(), path[2:])
	}
	return filepath.Clean(path)
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
