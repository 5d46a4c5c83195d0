package profiles

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotPublished is returned by Published when the driver arguments side-channel is empty.
var ErrNotPublished = errors.New("device profile driver arguments have not been published")

// ConfigurationError means no device profiles file could be located.
type ConfigurationError struct {
	Attempted []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Attempted) == 0 {
		return "device profiles YAML not found: no candidate paths"
	}
	return "device profiles YAML not found. Looked for: " + strings.Join(e.Attempted, ", ")
}

// ProfileNotFoundError means the profiles file was read but the key is missing
// or does not hold a sequence or mapping.
type ProfileNotFoundError struct {
	Key    string
	Path   string
	Reason string
}

func (e *ProfileNotFoundError) Error() string {
	msg := fmt.Sprintf("no device profile '%s' in %s", e.Key, e.Path)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// ParseError wraps a failure to read the profiles file as a mapping of profiles.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing device profiles %s: %s", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
