package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileNames are tried in order in every directory.
var FileNames = []string{"kiln.toml", "kiln.yaml", "kiln.yml"}

// Find walks up from startDir to locate a kiln config file.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Resolve loads the explicit path, or the nearest config above startDir,
// or falls back to base.
func Resolve(explicit, startDir string, base *Config) (*Config, error) {
	if explicit != "" {
		return Load(explicit, base)
	}
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return base.Clone(), nil
	}
	return Load(path, base)
}
