package manifest

import (
	"log/slog"
	"time"

	"github.com/simon020286/go-manifest/inspect"
	"github.com/simon020286/go-manifest/models"
)

// Option configures a Manifest
type Option func(*Manifest)

// WithID sets the run identifier instead of a random UUID
func WithID(id string) Option {
	return func(m *Manifest) {
		m.id = id
	}
}

// WithClock replaces time.Now for the start and end timestamps
func WithClock(clock func() time.Time) Option {
	return func(m *Manifest) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithInspector replaces the environment inspector
func WithInspector(inspector inspect.Inspector) Option {
	return func(m *Manifest) {
		if inspector != nil {
			m.inspector = inspector
		}
	}
}

// WithWorkdir inspects the real host, starting git discovery at dir
func WithWorkdir(dir string) Option {
	return WithInspector(inspect.System{Dir: dir})
}

// WithLogger logs manifest events to logger
func WithLogger(logger *slog.Logger) Option {
	return WithListener(NewLogListener(logger))
}

// WithListener registers an event listener
func WithListener(listener models.EventListener) Option {
	return func(m *Manifest) {
		if listener != nil {
			m.eventBus.addListener(listener)
		}
	}
}
