// Package config provides YAML-based configuration loading with environment
// variable expansion and optional post-decode validation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is implemented by configurations that check themselves after
// decoding.
type Validator interface {
	Validate() error
}

// Load decodes a YAML file into target. References like ${VAR} are expanded
// from the environment before decoding, unknown keys are rejected, and when
// target implements Validator it runs afterwards.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", filename, err)
	}
	return decode(filename, data, target)
}

// LoadIfExists behaves like Load but treats a missing file as empty input,
// so values already present in target survive. Validation still runs.
func LoadIfExists[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return validate(target)
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", filename, err)
	}
	return decode(filename, data, target)
}

func decode[T any](filename string, data []byte, target *T) error {
	expanded := os.ExpandEnv(string(data))

	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse %s: %w", filename, err)
	}
	return validate(target)
}

func validate[T any](target *T) error {
	v, ok := any(target).(Validator)
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("config: validate: %w", err)
	}
	return nil
}
