// Package manifest handles lamc.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/xyproto/env/v2"
)

// FileName is the name of the project file.
const FileName = "lamc.toml"

// Manifest represents a lamc.toml project configuration.
type Manifest struct {
	Project  Project        `toml:"project" json:"project"`
	Compiler CompilerConfig `toml:"compiler" json:"compiler"`
	Print    PrintConfig    `toml:"print" json:"print"`
	Cache    CacheConfig    `toml:"cache" json:"cache"`
	Log      LogConfig      `toml:"log" json:"log"`

	// Dir is the directory containing the lamc.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name" json:"name"`

	// Requires is a semver constraint on the compiler version.
	Requires string `toml:"requires" json:"requires"`
}

// CompilerConfig selects pipeline options and the backend.
type CompilerConfig struct {
	OccursCheck bool   `toml:"occurs-check" json:"occurs-check"`
	Backend     string `toml:"backend" json:"backend"`
}

// PrintConfig selects which intermediate forms are printed.
type PrintConfig struct {
	Type    bool `toml:"type" json:"type"`
	ANF     bool `toml:"anf" json:"anf"`
	Closure bool `toml:"closure" json:"closure"`
	Hoisted bool `toml:"hoisted" json:"hoisted"`
	IR      bool `toml:"ir" json:"ir"`
}

// CacheConfig configures the compile cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int `toml:"verbosity" json:"verbosity"`
}

// Backends lists the accepted values of compiler.backend.
var Backends = []string{"vm", "wat", "go"}

// Default returns the configuration used when no lamc.toml exists.
func Default() *Manifest {
	return &Manifest{
		Compiler: CompilerConfig{OccursCheck: true, Backend: "vm"},
		Print:    PrintConfig{Type: true},
		Cache:    CacheConfig{Enabled: true, Path: filepath.Join(".lamc", "cache.db")},
		Log:      LogConfig{Verbosity: 1},
	}
}

// Load parses a lamc.toml file from the given directory. Keys missing from
// the file keep their defaults; environment overrides are applied last.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.ApplyEnv()
	return m, nil
}

// FindAndLoad walks up from startDir to find a lamc.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// ApplyEnv overrides settings from LAMC_BACKEND, LAMC_OCCURS_CHECK,
// LAMC_CACHE and LAMC_VERBOSITY. The environment is re-read on every call.
func (m *Manifest) ApplyEnv() {
	env.Load()
	m.Compiler.Backend = env.Str("LAMC_BACKEND", m.Compiler.Backend)
	if env.Has("LAMC_OCCURS_CHECK") {
		m.Compiler.OccursCheck = env.Bool("LAMC_OCCURS_CHECK")
	}
	if env.Has("LAMC_CACHE") {
		m.Cache.Enabled = env.Bool("LAMC_CACHE")
	}
	m.Log.Verbosity = env.Int("LAMC_VERBOSITY", m.Log.Verbosity)
}

// CachePath returns the absolute path of the cache database.
func (m *Manifest) CachePath() string {
	if filepath.IsAbs(m.Cache.Path) || m.Dir == "" {
		return m.Cache.Path
	}
	return filepath.Join(m.Dir, m.Cache.Path)
}
