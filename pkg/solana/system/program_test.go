package system

import (
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-program/associated-token-account/pkg/solana"
)

func TestCreateAccount(t *testing.T) {
	keys := generateKeys(t, 3)
	funder, address, owner := keys[0], keys[1], keys[2]

	for command, ix := range map[Command]solana.Instruction{
		CommandCreateAccount:          CreateAccount(funder, address, owner, 2039280, 165),
		CommandCreateAccountPrefunded: CreateAccountPrefunded(funder, address, owner, 2039280, 165),
	} {
		assert.EqualValues(t, ProgramKey[:], ix.Program)

		require.Len(t, ix.Data, 4+8+8+32)
		assert.EqualValues(t, command, binary.LittleEndian.Uint32(ix.Data))
		assert.EqualValues(t, 2039280, binary.LittleEndian.Uint64(ix.Data[4:]))
		assert.EqualValues(t, 165, binary.LittleEndian.Uint64(ix.Data[12:]))
		assert.EqualValues(t, owner, ix.Data[20:])

		require.Len(t, ix.Accounts, 2)
		for i, key := range []ed25519.PublicKey{funder, address} {
			assert.Equal(t, key, ix.Accounts[i].PublicKey)
			assert.True(t, ix.Accounts[i].IsSigner)
			assert.True(t, ix.Accounts[i].IsWritable)
		}
	}

	assert.EqualValues(t, 13, CommandCreateAccountPrefunded)
}

func TestAssign(t *testing.T) {
	keys := generateKeys(t, 2)

	ix := Assign(keys[0], keys[1])
	assert.Equal(t, append([]byte{1, 0, 0, 0}, keys[1]...), ix.Data)
	require.Len(t, ix.Accounts, 1)
	assert.True(t, ix.Accounts[0].IsSigner)
	assert.True(t, ix.Accounts[0].IsWritable)
}

func TestTransfer(t *testing.T) {
	keys := generateKeys(t, 2)

	ix := Transfer(keys[0], keys[1], 5000)
	assert.Equal(t, []byte{2, 0, 0, 0, 0x88, 0x13, 0, 0, 0, 0, 0, 0}, ix.Data)

	require.Len(t, ix.Accounts, 2)
	assert.True(t, ix.Accounts[0].IsSigner)
	assert.True(t, ix.Accounts[0].IsWritable)
	assert.False(t, ix.Accounts[1].IsSigner)
	assert.True(t, ix.Accounts[1].IsWritable)
}

func TestAllocate(t *testing.T) {
	address := generateKeys(t, 1)[0]

	ix := Allocate(address, 165)
	assert.Equal(t, []byte{8, 0, 0, 0, 165, 0, 0, 0, 0, 0, 0, 0}, ix.Data)
	require.Len(t, ix.Accounts, 1)
	assert.Equal(t, address, ix.Accounts[0].PublicKey)
	assert.True(t, ix.Accounts[0].IsSigner)
}

func generateKeys(t *testing.T, n int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, n)
	for i := range keys {
		pub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = pub
	}
	return keys
}
