// Package config loads the optional pile.yml interpreter settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/pilelang/pile/pkg/pile/evaluator"
)

// Config holds interpreter settings from pile.yml.
type Config struct {
	// SearchPaths are tried, in order, after the importing file's own
	// directory when resolving imports.
	SearchPaths []string `yaml:"search_paths"`

	// MaxDepth bounds nested procedure calls.
	MaxDepth int `yaml:"max_depth"`

	// HistoryFile is where the REPL keeps its line history.
	HistoryFile string `yaml:"history_file"`

	// BaseDir is the directory the config was loaded from, used for
	// resolving relative paths. Not read from YAML.
	BaseDir string `yaml:"-"`
}

// Defaults returns the configuration used when no pile.yml exists.
func Defaults() *Config {
	return &Config{
		MaxDepth:    evaluator.DefaultMaxDepth,
		HistoryFile: filepath.Join(os.TempDir(), ".pile_history"),
	}
}

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations; finding no
// file at all is not an error and yields the defaults.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return Defaults(), nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	baseDir := filepath.Dir(absPath)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Interpolate environment variables
	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.BaseDir = baseDir

	// Resolve relative paths against the config file's directory
	for i := range cfg.SearchPaths {
		if !filepath.IsAbs(cfg.SearchPaths[i]) {
			cfg.SearchPaths[i] = filepath.Join(baseDir, cfg.SearchPaths[i])
		}
	}
	if cfg.HistoryFile != "" && !filepath.IsAbs(cfg.HistoryFile) {
		cfg.HistoryFile = filepath.Join(baseDir, cfg.HistoryFile)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveConfigPath finds the config file to use.
// Search order: explicit path > PILE_CONFIG env > ./pile.yml >
// ~/.config/pile/pile.yml. An empty return with nil error means no
// config file was found anywhere.
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	if envPath := getenv("PILE_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("PILE_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}

	if _, err := os.Stat("pile.yml"); err == nil {
		return "pile.yml", nil
	}

	home, err := os.UserHomeDir()
	if err == nil {
		xdgPath := filepath.Join(home, ".config", "pile", "pile.yml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", nil
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with
// environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := string(parts[1])
		value := getenv(varName)

		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}

		return []byte(value)
	})
}

func validate(cfg *Config) error {
	if cfg.MaxDepth < 1 {
		return fmt.Errorf("invalid max_depth: %d (must be at least 1)", cfg.MaxDepth)
	}
	for _, path := range cfg.SearchPaths {
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			return fmt.Errorf("search path is not a directory: %s", path)
		}
	}
	return nil
}
