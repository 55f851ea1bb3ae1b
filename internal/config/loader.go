package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Load reads the settings file at path on top of Defaults. An empty path
// falls back to DefaultPath, which may be absent.
func Load(path string) (Settings, error) {
	settings := Defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return settings, nil
		}
		return Settings{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(content, &settings); err != nil {
			return Settings{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &settings); err != nil {
			return Settings{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return Settings{}, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}

	return settings, nil
}
