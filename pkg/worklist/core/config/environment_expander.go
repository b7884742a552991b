package config

import (
	"os"
	"strings"
)

// EnvironmentExpander expands environment variable placeholders (${VAR} or $VAR) in raw configuration data.
type EnvironmentExpander interface {
	Expand(input []byte) ([]byte, error)
}

// OsEnvironmentExpander expands placeholders from the process environment.
// ${VAR:-default} yields default when VAR is unset or empty; other unset variables become empty strings.
type OsEnvironmentExpander struct{}

// NewOsEnvironmentExpander creates and returns a new instance of OsEnvironmentExpander.
func NewOsEnvironmentExpander() *OsEnvironmentExpander {
	return &OsEnvironmentExpander{}
}

// Expand never fails.
func (e *OsEnvironmentExpander) Expand(input []byte) ([]byte, error) {
	return []byte(os.Expand(string(input), lookupWithDefault)), nil
}

func lookupWithDefault(name string) string {
	key, def, hasDefault := strings.Cut(name, ":-")
	if v := os.Getenv(key); v != "" || !hasDefault {
		return v
	}
	return def
}
