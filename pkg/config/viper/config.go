// Package viper sources config values from a viper instance, which may be fed
// by a config file, environment variables or flags.
package viper

import (
	"context"

	"github.com/spf13/viper"

	"github.com/solana-program/associated-token-account/pkg/config"
	"github.com/solana-program/associated-token-account/pkg/config/wrapper"
)

type conf struct {
	v   *viper.Viper
	key string
}

// NewConfig returns a config that reads key from v on every Get. A nil v
// reads from the global viper instance.
func NewConfig(v *viper.Viper, key string) config.Config {
	if v == nil {
		v = viper.GetViper()
	}

	return &conf{
		v:   v,
		key: key,
	}
}

// Get implements Config.Get
func (c *conf) Get(_ context.Context) (interface{}, error) {
	if !c.v.IsSet(c.key) {
		return nil, config.ErrNoValue
	}

	return c.v.Get(c.key), nil
}

// Shutdown implements Config.Shutdown
func (c *conf) Shutdown() {
}

// NewUint64Config creates a viper-based uint64 config
func NewUint64Config(v *viper.Viper, key string, defaultValue uint64) config.Uint64 {
	return wrapper.NewUint64Config(NewConfig(v, key), defaultValue)
}

// NewBoolConfig creates a viper-based bool config
func NewBoolConfig(v *viper.Viper, key string, defaultValue bool) config.Bool {
	return wrapper.NewBoolConfig(NewConfig(v, key), defaultValue)
}
