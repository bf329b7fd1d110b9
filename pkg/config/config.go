// Package config defines typed, dynamically sourced configuration values.
//
// A Config yields raw values from some source (environment, viper, memory).
// The wrapper package turns a Config into a typed value with a default, which
// is what components hold.
package config

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrNoValue is returned by a Config whose source has no value. Typed
	// wrappers fall back to their default.
	ErrNoValue = errors.New("config: no value set")

	// ErrShutdown is returned by a Config used after Shutdown.
	ErrShutdown = errors.New("config: shutdown")
)

// Config is a source of a single configuration value.
type Config interface {
	// Get returns the current raw value, or ErrNoValue.
	Get(ctx context.Context) (interface{}, error)

	// Shutdown releases any resources held by the source.
	Shutdown()
}

// Bool is a boolean setting, such as a feature flag.
type Bool interface {
	// Get returns the current value, or the last known value if the source
	// fails.
	Get(ctx context.Context) bool
	GetSafe(ctx context.Context) (bool, error)
	Shutdown()
}

// Uint64 is an unsigned integer setting, such as a size limit.
type Uint64 interface {
	// Get returns the current value, or the last known value if the source
	// fails.
	Get(ctx context.Context) uint64
	GetSafe(ctx context.Context) (uint64, error)
	Shutdown()
}
