package gen

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingConfig is matched by every *ConfigError.
	ErrMissingConfig = errors.New("dbgraph/gen: invalid configuration")
	// ErrGenerationFailed is matched by every *GenerationError.
	ErrGenerationFailed = errors.New("dbgraph/gen: generation failed")
)

// ConfigError reports a Config or graph that cannot be generated.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

func (e *ConfigError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("dbgraph/gen: %s: %s", e.Option, e.Message)
	}
	return fmt.Sprintf("dbgraph/gen: %s %v: %s", e.Option, e.Value, e.Message)
}

func (e *ConfigError) Is(target error) bool { return target == ErrMissingConfig }

// GenerationError wraps the failure to render, format or write a file.
type GenerationError struct {
	File    string
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	msg := "dbgraph/gen: " + e.File
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *GenerationError) Unwrap() error { return e.Cause }

func (e *GenerationError) Is(target error) bool { return target == ErrGenerationFailed }
