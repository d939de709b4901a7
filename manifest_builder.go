package manifest

import (
	"fmt"

	"github.com/simon020286/go-manifest/config"
)

// FromConfig builds a manifest from a configuration. Options passed by the
// caller take precedence over the configured workdir.
func FromConfig(cfg *config.ManifestConfig, opts ...Option) (*Manifest, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("manifest configuration invalid: %w", err)
	}

	m := New(append([]Option{WithWorkdir(cfg.Workdir)}, opts...)...)
	m.destination = cfg.DestinationSpec()

	for _, name := range cfg.Inputs {
		m.AppendInput(name)
	}
	for _, name := range cfg.Outputs {
		m.AppendOutput(name)
	}

	return m, nil
}
