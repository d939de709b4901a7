// Package sinks writes finished run reports to their destination.
//
// A destination string is parsed into a URL whose scheme selects a
// registered Factory. Factories register themselves from init().
package sinks

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/simon020286/go-manifest/models"
)

// Sink writes one or more reports to a destination
type Sink interface {
	Write(ctx context.Context, report *models.Report) error
	Close() error
}

// Factory creates a Sink for a parsed destination
type Factory func(target *url.URL) (Sink, error)

var (
	// registry contains all registered factories by scheme
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

// Register registers a factory for a destination scheme
func Register(scheme string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(scheme)] = factory
}

// GetFactory returns the factory for a scheme
func GetFactory(scheme string) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()

	factory, exists := registry[strings.ToLower(scheme)]
	if !exists {
		return nil, models.ErrUnknownSink(scheme)
	}
	return factory, nil
}

// ListSchemes returns all registered schemes, sorted
func ListSchemes() []string {
	mu.RLock()
	defer mu.RUnlock()

	schemes := make([]string, 0, len(registry))
	for s := range registry {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// Open parses destination and creates the matching sink
func Open(destination string) (Sink, error) {
	target := ParseDestination(destination)

	factory, err := GetFactory(target.Scheme)
	if err != nil {
		return nil, err
	}
	return factory(target)
}

// ParseDestination maps a destination string to a URL.
//   - "" and "-" -> stdout
//   - plain paths, Windows drive paths and file:// URLs -> file
//   - "postgresql://" is normalized to "postgres://"
func ParseDestination(destination string) *url.URL {
	d := strings.TrimSpace(destination)
	if d == "" || d == "-" {
		return &url.URL{Scheme: SchemeStdout}
	}

	u, err := url.Parse(d)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		return &url.URL{Scheme: SchemeFile, Path: d}
	}

	u.Scheme = strings.ToLower(u.Scheme)
	switch u.Scheme {
	case "postgresql":
		u.Scheme = SchemePostgres
	case SchemeFile:
		if u.Host != "" && u.Host != "localhost" {
			u.Path = u.Host + u.Path
		}
		u.Host = ""
	}
	return u
}

const (
	SchemeStdout   = "stdout"
	SchemeFile     = "file"
	SchemeS3       = "s3"
	SchemePostgres = "postgres"
)
