package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mys721tx/nullfs/internal/util"
)

// Default configuration constants. See [Config] for field descriptions.
const (
	// DefaultAttrTimeout is the attribute cache timeout in seconds. The
	// two inodes never change, but we keep the window short so behavior
	// stays comparable with ordinary filesystems.
	DefaultAttrTimeout = 1.0

	// DefaultEntryTimeout is the directory entry cache timeout in seconds
	DefaultEntryTimeout = 1.0

	// DefaultMaxWrite is the maximum write size per FUSE request
	DefaultMaxWrite = 1 << 20

	// DefaultFsName is the filesystem source shown in mount tables
	DefaultFsName = "nullfs"

	// DefaultName is the filesystem type shown in mount tables
	DefaultName = "nullfs"

	// DefaultAutoUnmount unmounts the filesystem when the process exits
	DefaultAutoUnmount = true

	// DefaultLogLvl is the default log level
	DefaultLogLvl = util.InfoLevel
)

// CLI verbosity bounds; verbose flag values map onto [util.LogLevel]
const (
	ErrorVerbose = 1
	WarnVerbose  = 2
	InfoVerbose  = 3
	DebugVerbose = 4
	TraceVerbose = 5
)

// Config contains runtime configuration values for the null filesystem.
type Config struct {
	MountOptions

	LogLvl       util.LogLevel // Internal log level (Default Info)
	AttrTimeout  float64       // Attribute cache timeout in seconds (Default 1.0)
	EntryTimeout float64       // Directory entry cache timeout in seconds (Default 1.0)
	MaxWrite     int           // Maximum write size per FUSE request (Default 1MB)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
//
// LogLvl is the CLI verbosity (1-5), not the internal [util.LogLevel].
type ConfigOverride struct {
	LogLvl       *int     `yaml:"verbose,omitempty" json:"verbose,omitempty"`
	AttrTimeout  *float64 `yaml:"attr_timeout,omitempty" json:"attr_timeout,omitempty"`
	EntryTimeout *float64 `yaml:"entry_timeout,omitempty" json:"entry_timeout,omitempty"`
	MaxWrite     *int     `yaml:"max_write,omitempty" json:"max_write,omitempty"`
	Debug        *bool    `yaml:"debug,omitempty" json:"debug,omitempty"`
	FsName       *string  `yaml:"fsname,omitempty" json:"fsname,omitempty"`
	Name         *string  `yaml:"name,omitempty" json:"name,omitempty"`
	AutoUnmount  *bool    `yaml:"auto_unmount,omitempty" json:"auto_unmount,omitempty"`
	ReadOnly     *bool    `yaml:"read_only,omitempty" json:"read_only,omitempty"`
	Options      []string `yaml:"options,omitempty" json:"options,omitempty"`
}

// NewConfig creates a Config from defaults with override applied on top.
// A nil override returns the defaults.
func NewConfig(override *ConfigOverride) *Config {
	cfg := &Config{
		MountOptions: MountOptions{
			FsName:      DefaultFsName,
			Name:        DefaultName,
			AutoUnmount: DefaultAutoUnmount,
		},
		LogLvl:       DefaultLogLvl,
		AttrTimeout:  DefaultAttrTimeout,
		EntryTimeout: DefaultEntryTimeout,
		MaxWrite:     DefaultMaxWrite,
	}
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.LogLvl != nil {
		c.LogLvl = VerboseToLevel(*override.LogLvl)
	}
	if override.AttrTimeout != nil {
		c.AttrTimeout = *override.AttrTimeout
	}
	if override.EntryTimeout != nil {
		c.EntryTimeout = *override.EntryTimeout
	}
	if override.MaxWrite != nil {
		c.MaxWrite = *override.MaxWrite
	}
	if override.Debug != nil {
		c.Debug = *override.Debug
	}
	if override.FsName != nil {
		c.FsName = *override.FsName
	}
	if override.Name != nil {
		c.Name = *override.Name
	}
	if override.AutoUnmount != nil {
		c.AutoUnmount = *override.AutoUnmount
	}
	if override.ReadOnly != nil {
		c.ReadOnly = *override.ReadOnly
	}
	if override.Options != nil {
		c.Options = override.Options
	}
}

// VerboseToLevel maps the CLI verbosity (1 = error .. 5 = trace) onto the
// internal log level, clamping out-of-range values.
func VerboseToLevel(verbose int) util.LogLevel {
	if verbose < ErrorVerbose {
		verbose = ErrorVerbose
	}
	if verbose > TraceVerbose {
		verbose = TraceVerbose
	}
	levels := [5]util.LogLevel{
		util.ErrorLevel,
		util.WarnLevel,
		util.InfoLevel,
		util.DebugLevel,
		util.TraceLevel,
	}
	return levels[verbose-1]
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewConfig and LoadConfigOverrideFile.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	return NewConfig(override), nil
}
