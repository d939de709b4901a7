package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvDestination = "MANIFEST_DESTINATION"
	EnvWorkdir     = "MANIFEST_WORKDIR"
)

func String(key string, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func Bool(key string, def bool) (bool, error) {
	if v, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("parse %s: %w", key, err)
		}
		return b, nil
	}
	return def, nil
}
