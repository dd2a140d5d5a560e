package config

import (
	"fmt"
	"strings"
)

// ErrorKind says which stage of loading config.yaml failed.
type ErrorKind string

const (
	KindRead    ErrorKind = "read"
	KindParse   ErrorKind = "parse"
	KindInvalid ErrorKind = "invalid"
)

func (k ErrorKind) describe() string {
	switch k {
	case KindRead:
		return "cannot read configuration"
	case KindParse:
		return "malformed YAML"
	default:
		return "invalid configuration"
	}
}

// ConfigurationError reports a config.yaml that could not be used. Hints
// are printed below the error so the CLI shows them without extra plumbing.
type ConfigurationError struct {
	Path  string
	Kind  ErrorKind
	Line  int
	Err   error
	Hints []string
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Path)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	fmt.Fprintf(&b, ": %s: %v", e.Kind.describe(), e.Err)
	if len(e.Hints) > 0 {
		b.WriteString("\n")
		for _, h := range e.Hints {
			fmt.Fprintf(&b, "\n  hint: %s", h)
		}
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
