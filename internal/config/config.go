// Package config loads .cppscanner.toml, the project-level defaults
// file a run picks up unless overridden by an explicit CLI flag or one
// of the CPPSCANNER_* environment variables.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the subset of scanner settings worth defaulting from a
// project file rather than typing on every invocation.
type Config struct {
	Project struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"project"`

	Scan struct {
		Home               string   `toml:"home"`
		Root               string   `toml:"root"`
		IndexExternalFiles bool     `toml:"index_external_files"`
		IndexLocalSymbols  bool     `toml:"index_local_symbols"`
		Filters            []string `toml:"filters"`
		TranslationUnitFilters []string `toml:"filter_tu"`
		Threads            int      `toml:"threads"`
	} `toml:"scan"`
}

// Default returns the zero-value Config a run falls back to when no
// .cppscanner.toml exists: local symbols on, everything else off.
func Default() *Config {
	cfg := &Config{}
	cfg.Scan.IndexLocalSymbols = true
	return cfg
}

// Load reads and parses path. A missing file is not an error: it
// returns Default() unchanged, since .cppscanner.toml is optional.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays the CPPSCANNER_* environment variables on top of
// whatever Load produced, matching the precedence CLI flags > env >
// .cppscanner.toml > built-in defaults.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v, ok := lookupBool(getenv("CPPSCANNER_INDEX_LOCAL_SYMBOLS")); ok {
		c.Scan.IndexLocalSymbols = v
	}
	if v := getenv("CPPSCANNER_HOME_DIR"); v != "" {
		c.Scan.Home = v
	}
	// CPPSCANNER_OUTPUT_DIR has no Config field and is not read here or
	// by the run command, which takes its output path from -o as given.
}

// lookupBool parses one of the spec's accepted boolean spellings.
// "0", "OFF", "false", "False" (case as written) disable; any other
// non-empty value enables; an empty or unset variable leaves the
// current value alone (ok == false).
func lookupBool(v string) (bool, bool) {
	switch v {
	case "":
		return false, false
	case "0", "OFF", "false", "False":
		return false, true
	default:
		return true, true
	}
}
