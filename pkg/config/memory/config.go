// Package memory provides a config whose value is set by the caller, for tests
// that need to change settings mid-run.
package memory

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/solana-program/associated-token-account/pkg/config"
)

var errDeveloperInduced = errors.New("in memory config: developer induced error")

// Config holds a single value in memory. A nil value means no value is set.
type Config struct {
	mu sync.RWMutex

	value    interface{}
	induced  bool
	shutdown bool
}

// NewConfig returns a Config holding value, which may be nil.
func NewConfig(value interface{}) *Config {
	return &Config{value: value}
}

// Get implements Config.Get
func (c *Config) Get(_ context.Context) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.shutdown:
		return nil, config.ErrShutdown
	case c.induced:
		return nil, errDeveloperInduced
	case c.value == nil:
		return nil, config.ErrNoValue
	default:
		return c.value, nil
	}
}

// Shutdown implements Config.Shutdown
func (c *Config) Shutdown() {
	c.update(func() { c.shutdown = true })
}

// SetValue replaces the held value.
func (c *Config) SetValue(value interface{}) {
	c.update(func() { c.value = value })
}

// ClearValue unsets the held value, so Get returns config.ErrNoValue.
func (c *Config) ClearValue() {
	c.update(func() { c.value = nil })
}

// InduceErrors makes Get fail until StopInducingErrors is called.
func (c *Config) InduceErrors() {
	c.update(func() { c.induced = true })
}

// StopInducingErrors undoes InduceErrors.
func (c *Config) StopInducingErrors() {
	c.update(func() { c.induced = false })
}

func (c *Config) update(fn func()) {
	c.mu.Lock()
	fn()
	c.mu.Unlock()
}
