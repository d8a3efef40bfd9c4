// Package config loads kiln.toml (or kiln.yaml) and exposes the
// effective build settings plus the opaque tunables handed to passes.
package config

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Build is the [build] section.
type Build struct {
	Targets  []string `toml:"targets" yaml:"targets"`
	Features []string `toml:"features" yaml:"features"`
	Jobs     int      `toml:"jobs" yaml:"jobs"`
	FailFast bool     `toml:"fail_fast" yaml:"fail_fast"`
	// Output is the directory for .kbc files.
	Output string `toml:"output" yaml:"output"`
	// Archive is the .kar path used by the emit-archive feature.
	Archive string `toml:"archive" yaml:"archive"`
}

// Config is the whole file. Tunables are free-form "<step>.<option>"
// keys that only the passes interpret.
type Config struct {
	Build    Build             `toml:"build" yaml:"build"`
	Tunables map[string]string `toml:"tunables" yaml:"tunables"`

	// Path is where the file was found; empty for defaults.
	Path string `toml:"-" yaml:"-"`
}

const (
	defaultOutput  = "out"
	defaultArchive = "out/app.kar"
)

// Default returns the configuration used without a file.
func Default(targets, features []string) *Config {
	return &Config{
		Build: Build{
			Targets:  slices.Clone(targets),
			Features: slices.Clone(features),
			Output:   defaultOutput,
			Archive:  defaultArchive,
		},
		Tunables: map[string]string{},
	}
}

// Load reads path on top of base; keys missing from the file keep the
// base values.
func Load(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := decode(data, filepath.Ext(path), cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

func decode(data []byte, ext string, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".toml":
		meta, err := toml.Decode(string(data), cfg)
		if err != nil {
			return fmt.Errorf("failed to parse TOML: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown key %q", undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && err != io.EOF {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	if cfg.Build.Jobs < 0 {
		return fmt.Errorf("build.jobs must be >= 0, got %d", cfg.Build.Jobs)
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Build.Targets = slices.Clone(c.Build.Targets)
	out.Build.Features = slices.Clone(c.Build.Features)
	out.Tunables = maps.Clone(c.Tunables)
	if out.Tunables == nil {
		out.Tunables = map[string]string{}
	}
	return &out
}

// Lookup implements the read-only view handed to passes.
func (c *Config) Lookup(key string) (string, bool) {
	v, ok := c.Tunables[key]
	return v, ok
}

// Set overrides a tunable ("key=value" from the command line).
func (c *Config) Set(kv string) error {
	key, value, ok := strings.Cut(kv, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("tunable %q: expected key=value", kv)
	}
	if c.Tunables == nil {
		c.Tunables = map[string]string{}
	}
	c.Tunables[key] = strings.TrimSpace(value)
	return nil
}

// Properties flattens the effective configuration into key/value pairs.
func (c *Config) Properties() map[string]string {
	props := map[string]string{
		"build.targets":   strings.Join(c.Build.Targets, ","),
		"build.features":  strings.Join(c.Build.Features, ","),
		"build.jobs":      strconv.Itoa(c.Build.Jobs),
		"build.fail_fast": strconv.FormatBool(c.Build.FailFast),
		"build.output":    c.Build.Output,
		"build.archive":   c.Build.Archive,
	}
	for k, v := range c.Tunables {
		props["tunables."+k] = v
	}
	return props
}

// Print writes the effective configuration as a sorted properties file.
func (c *Config) Print(w io.Writer, now time.Time) error {
	var sb strings.Builder
	sb.WriteString("#\n# Generated by kiln config\n")
	fmt.Fprintf(&sb, "# on %s\n", now.Format(time.RFC1123))
	if c.Path != "" {
		fmt.Fprintf(&sb, "# from %s\n", c.Path)
	}
	sb.WriteString("#\n")
	props := c.Properties()
	for _, k := range slices.Sorted(maps.Keys(props)) {
		fmt.Fprintf(&sb, "%s = %s\n", k, props[k])
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
