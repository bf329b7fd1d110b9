// Package wrapper adapts a raw config.Config into typed settings with a
// default value.
package wrapper

import (
	"context"
	"math"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/solana-program/associated-token-account/pkg/config"
)

// ErrUnsuportedConversion is returned when the source yields a type the
// wrapper cannot convert.
var ErrUnsuportedConversion = errors.New("config: wrapper conversion from source type not implemented")

// typed caches the last value successfully read from source. Sources without
// a value reset it to the default.
type typed[T any] struct {
	source       config.Config
	defaultValue T
	convert      func(interface{}) (T, error)

	mu        sync.RWMutex
	lastValue T
}

func newTyped[T any](source config.Config, defaultValue T, convert func(interface{}) (T, error)) *typed[T] {
	return &typed[T]{
		source:       source,
		defaultValue: defaultValue,
		convert:      convert,
		lastValue:    defaultValue,
	}
}

// GetSafe returns the current value. On error, the last known value is
// returned along with the error.
func (c *typed[T]) GetSafe(ctx context.Context) (T, error) {
	raw, err := c.source.Get(ctx)
	if err == config.ErrNoValue {
		c.store(c.defaultValue)
		return c.defaultValue, nil
	}
	if err != nil {
		return c.load(), err
	}

	value, err := c.convert(raw)
	if err != nil {
		return c.load(), err
	}

	c.store(value)
	return value, nil
}

// Get is GetSafe without the error.
func (c *typed[T]) Get(ctx context.Context) T {
	value, _ := c.GetSafe(ctx)
	return value
}

// Shutdown shuts down the underlying source.
func (c *typed[T]) Shutdown() {
	c.source.Shutdown()
}

func (c *typed[T]) load() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastValue
}

func (c *typed[T]) store(value T) {
	c.mu.Lock()
	c.lastValue = value
	c.mu.Unlock()
}

// NewBoolConfig wraps source as a bool. Sources may yield a bool, or a string
// or []byte accepted by strconv.ParseBool.
func NewBoolConfig(source config.Config, defaultValue bool) config.Bool {
	return newTyped(source, defaultValue, toBool)
}

// NewUint64Config wraps source as a uint64. Sources may yield any non-negative
// integer type, a whole float, or a base 10 string or []byte.
func NewUint64Config(source config.Config, defaultValue uint64) config.Uint64 {
	return newTyped(source, defaultValue, toUint64)
}

func toBool(raw interface{}) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	case []byte:
		return strconv.ParseBool(string(v))
	default:
		return false, ErrUnsuportedConversion
	}
}

func toUint64(raw interface{}) (uint64, error) {
	switch v := raw.(type) {
	case string:
		return strconv.ParseUint(v, 10, 64)
	case []byte:
		return strconv.ParseUint(string(v), 10, 64)
	case float32:
		return floatToUint64(float64(v))
	case float64:
		// json config files decode every number as a float64
		return floatToUint64(v)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		// toml decodes integers as int64, yaml as int
		return cast.ToUint64E(v)
	default:
		return 0, ErrUnsuportedConversion
	}
}

func floatToUint64(v float64) (uint64, error) {
	if v != math.Trunc(v) || v >= math.MaxUint64 {
		return 0, ErrUnsuportedConversion
	}
	return cast.ToUint64E(v)
}
