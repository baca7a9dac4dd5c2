// Package config provides YAML-based configuration loading with environment variable expansion.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Load loads configuration from a YAML file with environment variable
// expansion. Fields absent from the file keep the values already in target,
// so callers usually pass a populated default.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	return decode(filename, data, target)
}

// LoadOptional is Load for a file that may not exist. It reports whether
// the file was found; a missing file still validates target.
func LoadOptional[T any](filename string, target *T) (bool, error) {
	data, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return false, validate(target)
	}
	if err != nil {
		return false, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	return true, decode(filename, data, target)
}

func decode[T any](filename string, data []byte, target *T) error {
	expanded := os.ExpandEnv(string(data))

	dec := yaml.NewDecoder(bytes.NewBufferString(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	return validate(target)
}

func validate[T any](target *T) error {
	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}
