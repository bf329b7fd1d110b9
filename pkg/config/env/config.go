// Package env sources config values from environment variables.
package env

import (
	"context"
	"os"
	"strings"

	"github.com/solana-program/associated-token-account/pkg/config"
	"github.com/solana-program/associated-token-account/pkg/config/wrapper"
)

type conf struct {
	value []byte
}

// NewConfig returns a config holding the environment variable key, which is
// upper-cased. The variable is read once, here. An empty variable has no
// value.
func NewConfig(key string) config.Config {
	return &conf{
		value: []byte(os.Getenv(strings.ToUpper(key))),
	}
}

// Get implements Config.Get
func (c *conf) Get(_ context.Context) (interface{}, error) {
	if len(c.value) == 0 {
		return nil, config.ErrNoValue
	}
	return c.value, nil
}

// Shutdown implements Config.Shutdown
func (c *conf) Shutdown() {}

// NewUint64Config returns a uint64 config backed by the environment variable
// key.
func NewUint64Config(key string, defaultValue uint64) config.Uint64 {
	return wrapper.NewUint64Config(NewConfig(key), defaultValue)
}

// NewBoolConfig returns a bool config backed by the environment variable key.
func NewBoolConfig(key string, defaultValue bool) config.Bool {
	return wrapper.NewBoolConfig(NewConfig(key), defaultValue)
}
