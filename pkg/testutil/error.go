package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-program/associated-token-account/pkg/solana"
)

// AssertInstructionError verifies that the provided error is a transaction
// error raised by the instruction at index with the expected program error.
func AssertInstructionError(t *testing.T, err error, index int, expected error) {
	require.Error(t, err)

	txErr, ok := err.(*solana.TransactionError)
	require.True(t, ok, "unexpected error type %T: %v", err, err)

	instructionErr := txErr.InstructionError()
	require.NotNil(t, instructionErr, "not an instruction error: %v", err)
	assert.Equal(t, index, instructionErr.Index)
	assert.Equal(t, expected, instructionErr.Err)
}

// AssertTransactionError verifies that the provided error is a transaction
// level failure with the given key.
func AssertTransactionError(t *testing.T, err error, key solana.TransactionErrorKey) {
	require.Error(t, err)

	txErr, ok := err.(*solana.TransactionError)
	require.True(t, ok, "unexpected error type %T: %v", err, err)
	assert.Equal(t, key, txErr.ErrorKey())
}
