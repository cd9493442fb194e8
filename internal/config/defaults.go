package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/inamate/canvasflow/internal/document"
)

// LoadDefaults reads a defaults override file. The format follows the file
// extension: .yaml/.yml, .toml, or JSON for anything else. An empty path
// yields the built-in registry.
func LoadDefaults(path string) (document.Defaults, error) {
	if path == "" {
		return document.BuiltinDefaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return document.Defaults{}, fmt.Errorf("read defaults file: %w", err)
	}
	return DecodeDefaults(filepath.Ext(path), data)
}

// DecodeDefaults decodes override data in the format named by ext. Keys
// missing from the data keep their built-in values.
func DecodeDefaults(ext string, data []byte) (document.Defaults, error) {
	var raw map[string]any
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return document.Defaults{}, fmt.Errorf("%w: %v", document.ErrInvalidDefaultsConfig, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return document.Defaults{}, fmt.Errorf("%w: %v", document.ErrInvalidDefaultsConfig, err)
		}
	default:
		return document.NewDefaults(json.RawMessage(bytes.TrimSpace(data)))
	}
	if raw == nil {
		return document.BuiltinDefaults(), nil
	}
	return document.NewDefaults(raw)
}
