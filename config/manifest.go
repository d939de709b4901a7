package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ManifestConfig represents the manifest configuration from YAML
type ManifestConfig struct {
	Name        string   `yaml:"name,omitempty"`
	Destination any      `yaml:"destination,omitempty"` // literal, "$js:<expr>", "$env:NAME" or "$var:name"
	Workdir     string   `yaml:"workdir,omitempty"`     // where git discovery starts; empty means the process cwd
	Inputs      []string `yaml:"inputs,omitempty"`
	Outputs     []string `yaml:"outputs,omitempty"`
}

// DestinationSpec returns the parsed destination, or nil when none is configured
func (c *ManifestConfig) DestinationSpec() ValueSpec {
	if c == nil || c.Destination == nil {
		return nil
	}
	return ParseValue(c.Destination)
}

// Load reads a YAML file, applies environment overrides and validates the result
func Load(path string) (*ManifestConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML bytes, applies environment overrides and validates the result
func Parse(data []byte) (*ManifestConfig, error) {
	cfg := &ManifestConfig{}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.ApplyEnv()

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from MANIFEST_* environment variables
func (c *ManifestConfig) ApplyEnv() {
	if dest := String(EnvDestination, ""); dest != "" {
		c.Destination = dest
	}
	c.Workdir = String(EnvWorkdir, c.Workdir)
}
