package symbol

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlSymbolFile is the top-level YAML structure for a symbols content file.
type yamlSymbolFile struct {
	Symbols []Symbol `yaml:"symbols"`
}

// LoadFile reads and validates a symbols YAML file.
//
// Precondition: path must point to a readable YAML file.
// Postcondition: Returns a validated Registry or a non-nil error.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading symbols file %s: %w", path, err)
	}
	reg, err := LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading symbols file %s: %w", path, err)
	}
	return reg, nil
}

// LoadBytes parses and validates a Registry from YAML bytes.
//
// Postcondition: Returns a validated Registry or a non-nil error.
func LoadBytes(data []byte) (*Registry, error) {
	var file yamlSymbolFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing symbols YAML: %w", err)
	}
	return New(file.Symbols)
}
