package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// Config holds all configuration options.
type Config struct {
	// DefaultFilters are the criteria applied when no -f flag is given.
	DefaultFilters []string `json:"default_filters"`

	// PriorityAttributes overrides the built-in attribute priority list
	// that orders the leading output columns.
	PriorityAttributes []string `json:"priority_attributes"`

	// OutputSuffix is appended to the input base name when -o is omitted.
	OutputSuffix string `json:"output_suffix"`
}

// ConfigSources tracks which config files were loaded, for diagnostics.
type ConfigSources struct {
	Global  string // path to global config if loaded, empty otherwise
	Project string // path to project config if loaded, empty otherwise
}

// ConfigFileName is the default project config file name.
const ConfigFileName = ".g2b.json"

// Error variables for config loading.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigInvalid      = errors.New("invalid config file")
)

// DefaultConfig returns the built-in configuration: the original tool's
// default gene/protein_coding filters and "_filtered.bed" output naming.
func DefaultConfig() Config {
	return Config{
		DefaultFilters: []string{"column2=gene", "gene_biotype=protein_coding"},
		OutputSuffix:   "_filtered.bed",
	}
}

// LoadConfig loads configuration with the following precedence (highest
// wins): defaults, global user config, project config (.g2b.json in
// workDir), explicit config file via configPath. Slice fields override only
// when present in the file, so an explicit empty list disables the built-in
// default filters.
func LoadConfig(workDir, configPath string, env map[string]string) (Config, ConfigSources, error) {
	cfg := DefaultConfig()

	var sources ConfigSources

	if globalPath := globalConfigPath(env); globalPath != "" {
		loaded, found, err := readConfigFile(globalPath)
		if err != nil {
			return Config{}, ConfigSources{}, err
		}

		if found {
			sources.Global = globalPath
			cfg = mergeConfig(cfg, loaded)
		}
	}

	projectPath := configPath
	required := configPath != ""

	if projectPath == "" {
		projectPath = filepath.Join(workDir, ConfigFileName)
	}

	loaded, found, err := readConfigFile(projectPath)
	if err != nil {
		return Config{}, ConfigSources{}, err
	}

	if !found && required {
		return Config{}, ConfigSources{}, fmt.Errorf("%w: %s", ErrConfigFileNotFound, projectPath)
	}

	if found {
		sources.Project = projectPath
		cfg = mergeConfig(cfg, loaded)
	}

	return cfg, sources, nil
}

// globalConfigPath returns $XDG_CONFIG_HOME/g2b/config.json if set,
// otherwise ~/.config/g2b/config.json, or empty when neither is available.
func globalConfigPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "g2b", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "g2b", "config.json")
	}

	return ""
}

// readConfigFile reads one JSONC config file. found is false when the file
// does not exist.
func readConfigFile(path string) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: %s: %w", ErrConfigInvalid, path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w: %s: invalid JSONC: %w", ErrConfigInvalid, path, err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("%w: %s: invalid JSON: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

// mergeConfig overlays set fields of overlay onto base. A nil slice means
// the field was absent from the file; an empty non-nil slice is an explicit
// override.
func mergeConfig(base, overlay Config) Config {
	if overlay.DefaultFilters != nil {
		base.DefaultFilters = overlay.DefaultFilters
	}

	if overlay.PriorityAttributes != nil {
		base.PriorityAttributes = overlay.PriorityAttributes
	}

	if overlay.OutputSuffix != "" {
		base.OutputSuffix = overlay.OutputSuffix
	}

	return base
}
