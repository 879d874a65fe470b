package config

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// maxConfigSize limits YAML input to prevent memory exhaustion (1 MB).
const maxConfigSize = 1 << 20

var errEmptyConfig = errors.New("empty config file")

// decodeYAML strictly unmarshals data into cfg, rejecting unknown keys.
func decodeYAML(data []byte, cfg *Config) error {
	if len(data) == 0 {
		return errEmptyConfig
	}
	if len(data) > maxConfigSize {
		return fmt.Errorf("input exceeds %d bytes", maxConfigSize)
	}
	return yaml.UnmarshalWithOptions(data, cfg, yaml.Strict())
}

// Marshal renders cfg as YAML, as accepted by [LoadFile].
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
