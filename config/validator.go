package config

import (
	"fmt"

	"github.com/simon020286/go-manifest/models"
)

// Validate checks a manifest configuration
func Validate(cfg *ManifestConfig) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.Destination != nil {
		if err := validateDestination(cfg.Destination); err != nil {
			return fmt.Errorf("invalid destination: %w", err)
		}
	}

	return nil
}

// validateDestination accepts a scalar string whose dynamic form, if any, is complete
func validateDestination(raw any) error {
	if _, ok := raw.(string); !ok {
		return fmt.Errorf("expected a string, got %T", raw)
	}

	switch spec := ParseValue(raw).(type) {
	case DynamicValue:
		if spec.Expression == "" {
			return models.ErrMissingConfig("destination expression")
		}
	case EnvReference:
		if spec.Name == "" {
			return models.ErrMissingConfig("destination environment variable")
		}
	case VariableReference:
		if spec.Name == "" {
			return models.ErrMissingConfig("destination variable")
		}
	}

	return nil
}
