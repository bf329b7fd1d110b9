package env

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solana-program/associated-token-account/pkg/config"
)

func TestConfig(t *testing.T) {
	const key = "env_config_test_var"

	_, err := NewConfig(key).Get(context.Background())
	assert.Equal(t, config.ErrNoValue, err)

	// Keys are upper-cased.
	t.Setenv("ENV_CONFIG_TEST_VAR", "value")

	value, err := NewConfig(key).Get(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []byte("value"), value)
}

func TestTypedConfigs(t *testing.T) {
	const boolKey = "ENV_CONFIG_TEST_BOOL"
	const uintKey = "ENV_CONFIG_TEST_UINT"

	assert.False(t, NewBoolConfig(boolKey, false).Get(context.Background()))
	assert.EqualValues(t, 7, NewUint64Config(uintKey, 7).Get(context.Background()))

	t.Setenv(boolKey, "true")
	t.Setenv(uintKey, "2048")

	assert.True(t, NewBoolConfig(boolKey, false).Get(context.Background()))
	assert.EqualValues(t, 2048, NewUint64Config(uintKey, 7).Get(context.Background()))
}
