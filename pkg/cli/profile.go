package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/OscarSR27/ESDML-Lab2/pkg/kws"
)

// LoadProfile reads a spotter profile from a YAML or JSON file. Fields
// missing from the file keep their kws.DefaultConfig values.
func LoadProfile(path string) (kws.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return kws.Config{}, fmt.Errorf("failed to read profile: %w", err)
	}
	cfg := kws.DefaultConfig()
	if err := ParseFile(data, path, &cfg); err != nil {
		return kws.Config{}, err
	}
	return cfg, nil
}

// ParseFile decodes data into v based on the extension of filename,
// trying YAML then JSON when the extension is unknown.
func ParseFile(data []byte, filename string, v any) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, v); err != nil {
			if err2 := json.Unmarshal(data, v); err2 != nil {
				return fmt.Errorf("failed to parse %s (tried YAML and JSON)", filename)
			}
		}
	}
	return nil
}
