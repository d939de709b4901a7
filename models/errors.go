package models

import "fmt"

type MissingConfigError struct {
	Key string
}

func (e *MissingConfigError) Error() string {
	return "missing required configuration key: " + e.Key
}

func ErrMissingConfig(key string) error {
	return &MissingConfigError{Key: key}
}

type UnknownSinkError struct {
	Scheme string
}

func (e *UnknownSinkError) Error() string {
	return fmt.Sprintf("unknown sink scheme: %q", e.Scheme)
}

func ErrUnknownSink(scheme string) error {
	return &UnknownSinkError{Scheme: scheme}
}

type ResolveError struct {
	Key   string
	Value any
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("failed to resolve value for key '%s': %v", e.Key, e.Value)
}

// Unwrap exposes the underlying resolution error, if any
func (e *ResolveError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func ErrResolve(key string, value any) error {
	return &ResolveError{Key: key, Value: value}
}
