package wrapper

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-program/associated-token-account/pkg/config"
	"github.com/solana-program/associated-token-account/pkg/config/memory"
)

func TestBoolConfig(t *testing.T) {
	ctx := context.Background()
	source := memory.NewConfig(nil)
	flag := NewBoolConfig(source, true)

	value, err := flag.GetSafe(ctx)
	require.NoError(t, err)
	assert.True(t, value)

	for _, raw := range []interface{}{false, "false", []byte("0")} {
		source.SetValue(raw)
		value, err = flag.GetSafe(ctx)
		require.NoError(t, err, "%v", raw)
		assert.False(t, value, "%v", raw)
	}

	// Failures keep the last good value.
	source.InduceErrors()
	value, err = flag.GetSafe(ctx)
	assert.Error(t, err)
	assert.False(t, value)
	source.StopInducingErrors()

	source.SetValue([]byte("true"))
	assert.True(t, flag.Get(ctx))

	source.SetValue("maybe")
	value, err = flag.GetSafe(ctx)
	assert.Error(t, err)
	assert.True(t, value)

	source.SetValue(1.5)
	value, err = flag.GetSafe(ctx)
	assert.Equal(t, ErrUnsuportedConversion, err)
	assert.True(t, value)

	flag.Shutdown()
	_, err = flag.GetSafe(ctx)
	assert.Equal(t, config.ErrShutdown, err)
}

func TestUint64Config(t *testing.T) {
	ctx := context.Background()
	source := memory.NewConfig(nil)
	limit := NewUint64Config(source, math.MaxUint64)

	assert.EqualValues(t, uint64(math.MaxUint64), limit.Get(ctx))

	for _, tc := range []struct {
		raw      interface{}
		expected uint64
	}{
		{uint64(0), 0},
		{uint(42), 42},
		{2048, 2048},
		{int64(300), 300},
		{int32(7), 7},
		{uint32(9), 9},
		{float64(300), 300},
		{"1024", 1024},
		{[]byte("165"), 165},
	} {
		source.SetValue(tc.raw)
		value, err := limit.GetSafe(ctx)
		require.NoError(t, err, "%v", tc.raw)
		assert.Equal(t, tc.expected, value, "%v", tc.raw)
	}

	for _, raw := range []interface{}{-1, int64(-1), float64(-2), "-1", []byte("lots"), 1.5, true} {
		source.SetValue(raw)
		value, err := limit.GetSafe(ctx)
		assert.Error(t, err, "%v", raw)
		assert.EqualValues(t, 165, value, "%v", raw)
	}

	source.SetValue(1.5)
	_, err := limit.GetSafe(ctx)
	assert.Equal(t, ErrUnsuportedConversion, err)

	source.InduceErrors()
	value, err := limit.GetSafe(ctx)
	assert.Error(t, err)
	assert.EqualValues(t, 165, value)
	source.StopInducingErrors()

	// Clearing the source restores the default.
	source.ClearValue()
	assert.EqualValues(t, uint64(math.MaxUint64), limit.Get(ctx))

	limit.Shutdown()
	_, err = limit.GetSafe(ctx)
	assert.Equal(t, config.ErrShutdown, err)
}
