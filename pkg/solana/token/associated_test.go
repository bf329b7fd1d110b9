package token

import (
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-program/associated-token-account/pkg/solana"
	"github.com/solana-program/associated-token-account/pkg/solana/system"
)

func TestGetAssociatedAccount(t *testing.T) {
	// Values generated from taken from spl code.
	wallet, err := base58.Decode("4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofM")
	require.NoError(t, err)
	mint, err := base58.Decode("8opHzTAnfzRpPEx21XtnrVTX28YQuCpAjcn1PczScKh")
	require.NoError(t, err)
	addr, err := base58.Decode("H7MQwEzt97tUJryocn3qaEoy2ymWstwyEk1i9Yv3EmuZ")
	require.NoError(t, err)

	actual, err := GetAssociatedAccount(wallet, mint)
	require.NoError(t, err)
	assert.EqualValues(t, addr, actual)

	withProgram, bump, err := GetAssociatedAccountWithProgram(wallet, mint, ProgramKey)
	require.NoError(t, err)
	assert.EqualValues(t, addr, withProgram)

	verified, err := solana.CreateProgramAddress(AssociatedTokenAccountProgramKey, wallet, ProgramKey, mint, []byte{bump})
	require.NoError(t, err)
	assert.EqualValues(t, addr, verified)
}

func TestGetAssociatedAccount_CrossCheck(t *testing.T) {
	for i := 0; i < 32; i++ {
		keys := generateKeys(t, 2)

		expected, expectedBump, err := solanago.FindAssociatedTokenAddress(
			solanago.PublicKeyFromBytes(keys[0]),
			solanago.PublicKeyFromBytes(keys[1]),
		)
		require.NoError(t, err)

		actual, bump, err := GetAssociatedAccountWithProgram(keys[0], keys[1], ProgramKey)
		require.NoError(t, err)
		assert.EqualValues(t, expected.Bytes(), actual)
		assert.Equal(t, expectedBump, bump)

		expected, expectedBump, err = solanago.FindProgramAddress(
			[][]byte{keys[0], Program2022Key, keys[1]},
			solanago.PublicKeyFromBytes(AssociatedTokenAccountProgramKey),
		)
		require.NoError(t, err)

		actual, bump, err = GetAssociatedAccountWithProgram(keys[0], keys[1], Program2022Key)
		require.NoError(t, err)
		assert.EqualValues(t, expected.Bytes(), actual)
		assert.Equal(t, expectedBump, bump)
	}
}

func TestCreateAssociatedAccount(t *testing.T) {
	keys := generateKeys(t, 3)

	expectedAddr, err := GetAssociatedAccount(keys[1], keys[2])
	require.NoError(t, err)

	instruction, addr, err := CreateAssociatedTokenAccount(keys[0], keys[1], keys[2])
	require.NoError(t, err)
	assert.Equal(t, expectedAddr, addr)

	assert.Empty(t, instruction.Data)
	assert.Equal(t, 7, len(instruction.Accounts))
	assert.True(t, instruction.Accounts[0].IsSigner)
	assert.True(t, instruction.Accounts[0].IsWritable)
	assert.False(t, instruction.Accounts[1].IsSigner)
	assert.True(t, instruction.Accounts[1].IsWritable)
	for i := 2; i < len(instruction.Accounts); i++ {
		assert.False(t, instruction.Accounts[i].IsSigner)
		assert.False(t, instruction.Accounts[i].IsWritable)
	}

	assert.EqualValues(t, system.ProgramKey[:], instruction.Accounts[4].PublicKey)
	assert.EqualValues(t, ProgramKey, instruction.Accounts[5].PublicKey)
	assert.EqualValues(t, system.RentSysVar, instruction.Accounts[6].PublicKey)

	decompiled, err := DecompileCreateAssociatedAccount(solana.NewLegacyTransaction(keys[0], instruction).Message, 0)
	require.NoError(t, err)
	assert.Equal(t, keys[0], decompiled.Subsidizer)
	assert.Equal(t, expectedAddr, decompiled.Address)
	assert.Equal(t, keys[1], decompiled.Owner)
	assert.Equal(t, keys[2], decompiled.Mint)
	assert.Equal(t, ProgramKey, decompiled.TokenProgram)
	assert.Equal(t, AssociatedCommandCreate, decompiled.Command)
	assert.Nil(t, decompiled.Bump)
	assert.Nil(t, decompiled.AccountLen)
}

func TestCreateAssociatedAccountIdempotent(t *testing.T) {
	keys := generateKeys(t, 3)

	expectedAddr, expectedBump, err := GetAssociatedAccountWithProgram(keys[1], keys[2], Program2022Key)
	require.NoError(t, err)

	instruction, addr, err := CreateAssociatedTokenAccountIdempotent(
		keys[0],
		keys[1],
		keys[2],
		WithTokenProgram(Program2022Key),
		WithBumpHint(),
		WithoutRentSysvar(),
	)
	require.NoError(t, err)
	assert.Equal(t, expectedAddr, addr)

	assert.Equal(t, []byte{byte(AssociatedCommandCreateIdempotent), expectedBump}, instruction.Data)
	require.Len(t, instruction.Accounts, 6)
	assert.EqualValues(t, Program2022Key, instruction.Accounts[5].PublicKey)

	decompiled, err := DecompileCreateAssociatedAccount(solana.NewLegacyTransaction(keys[0], instruction).Message, 0)
	require.NoError(t, err)
	assert.Equal(t, AssociatedCommandCreateIdempotent, decompiled.Command)
	assert.Equal(t, Program2022Key, decompiled.TokenProgram)
	require.NotNil(t, decompiled.Bump)
	assert.Equal(t, expectedBump, *decompiled.Bump)
}

func TestCreateAssociatedAccountPrefunded(t *testing.T) {
	keys := generateKeys(t, 3)

	_, expectedBump, err := GetAssociatedAccountWithProgram(keys[1], keys[2], Program2022Key)
	require.NoError(t, err)

	instruction, _, err := CreateAssociatedTokenAccountPrefunded(
		keys[0],
		keys[1],
		keys[2],
		WithTokenProgram(Program2022Key),
		WithAccountLenHint(182),
	)
	require.NoError(t, err)

	require.Len(t, instruction.Data, 4)
	assert.EqualValues(t, AssociatedCommandCreateAccountPrefunded, instruction.Data[0])
	assert.Equal(t, expectedBump, instruction.Data[1])
	assert.EqualValues(t, 182, binary.LittleEndian.Uint16(instruction.Data[2:]))

	decompiled, err := DecompileCreateAssociatedAccount(solana.NewLegacyTransaction(keys[0], instruction).Message, 0)
	require.NoError(t, err)
	assert.Equal(t, AssociatedCommandCreateAccountPrefunded, decompiled.Command)
	require.NotNil(t, decompiled.AccountLen)
	assert.EqualValues(t, 182, *decompiled.AccountLen)

	instruction, _, err = CreateAssociatedTokenAccountPrefunded(keys[0], keys[1], keys[2])
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(AssociatedCommandCreateAccountPrefunded)}, instruction.Data)
}

func TestDecompileCreateAssociatedAccount_Invalid(t *testing.T) {
	keys := generateKeys(t, 4)

	instruction, _, err := CreateAssociatedTokenAccount(keys[0], keys[1], keys[2])
	require.NoError(t, err)

	instruction.Data = []byte{byte(AssociatedCommandCreate), 255, 1}
	_, err = DecompileCreateAssociatedAccount(solana.NewLegacyTransaction(keys[0], instruction).Message, 0)
	assert.Contains(t, err.Error(), "invalid instruction data size")

	instruction.Data = []byte{byte(AssociatedCommandRecoverNested)}
	_, err = DecompileCreateAssociatedAccount(solana.NewLegacyTransaction(keys[0], instruction).Message, 0)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)

	instruction.Data = nil
	instruction.Accounts[4].PublicKey = keys[3]
	_, err = DecompileCreateAssociatedAccount(solana.NewLegacyTransaction(keys[0], instruction).Message, 0)
	assert.Contains(t, err.Error(), "system program key mismatch")

	instruction.Accounts = instruction.Accounts[:5]
	_, err = DecompileCreateAssociatedAccount(solana.NewLegacyTransaction(keys[0], instruction).Message, 0)
	assert.Contains(t, err.Error(), "invalid number of accounts")

	instruction.Program = keys[3]
	_, err = DecompileCreateAssociatedAccount(solana.NewLegacyTransaction(keys[0], instruction).Message, 0)
	assert.Equal(t, solana.ErrIncorrectProgram, err)
}

func TestRecoverNested(t *testing.T) {
	keys := generateKeys(t, 4)
	wallet, ownerMint, nestedMint, payer := keys[0], keys[1], keys[2], keys[3]

	owner, ownerBump, err := GetAssociatedAccountWithProgram(wallet, ownerMint, ProgramKey)
	require.NoError(t, err)
	nested, nestedBump, err := GetAssociatedAccountWithProgram(owner, nestedMint, ProgramKey)
	require.NoError(t, err)
	destination, destinationBump, err := GetAssociatedAccountWithProgram(wallet, nestedMint, ProgramKey)
	require.NoError(t, err)

	instruction, err := RecoverNested(wallet, ownerMint, nestedMint)
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(AssociatedCommandRecoverNested)}, instruction.Data)
	require.Len(t, instruction.Accounts, 7)

	expected := []struct {
		key      ed25519.PublicKey
		writable bool
		signer   bool
	}{
		{nested, true, false},
		{nestedMint, false, false},
		{destination, true, false},
		{owner, false, false},
		{ownerMint, false, false},
		{wallet, true, true},
		{ProgramKey, false, false},
	}
	for i, e := range expected {
		assert.Equal(t, e.key, instruction.Accounts[i].PublicKey, "account %d", i)
		assert.Equal(t, e.writable, instruction.Accounts[i].IsWritable, "account %d", i)
		assert.Equal(t, e.signer, instruction.Accounts[i].IsSigner, "account %d", i)
	}

	decompiled, err := DecompileRecoverNested(solana.NewLegacyTransaction(payer, instruction).Message, 0)
	require.NoError(t, err)
	assert.Equal(t, nested, decompiled.Nested)
	assert.Equal(t, destination, decompiled.Destination)
	assert.Equal(t, owner, decompiled.Owner)
	assert.Equal(t, wallet, decompiled.Wallet)
	assert.Equal(t, ProgramKey, decompiled.TokenProgram)
	assert.Empty(t, decompiled.Signers)
	assert.Nil(t, decompiled.OwnerBump)

	instruction, err = RecoverNested(wallet, ownerMint, nestedMint, WithRecoverBumpHints())
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(AssociatedCommandRecoverNested), ownerBump, nestedBump, destinationBump}, instruction.Data)

	decompiled, err = DecompileRecoverNested(solana.NewLegacyTransaction(payer, instruction).Message, 0)
	require.NoError(t, err)
	require.NotNil(t, decompiled.OwnerBump)
	assert.Equal(t, ownerBump, *decompiled.OwnerBump)
	assert.Equal(t, nestedBump, *decompiled.NestedBump)
	assert.Equal(t, destinationBump, *decompiled.DestinationBump)

	instruction.Data = instruction.Data[:2]
	_, err = DecompileRecoverNested(solana.NewLegacyTransaction(payer, instruction).Message, 0)
	assert.Contains(t, err.Error(), "invalid instruction data size")

	instruction.Data = []byte{byte(AssociatedCommandCreate)}
	_, err = DecompileRecoverNested(solana.NewLegacyTransaction(payer, instruction).Message, 0)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)
}

func TestRecoverMultisig(t *testing.T) {
	keys := generateKeys(t, 6)
	wallet, ownerMint, nestedMint, payer := keys[0], keys[1], keys[2], keys[3]
	signers := keys[4:]

	instruction, err := RecoverMultisig(wallet, ownerMint, nestedMint, signers, WithRecoverTokenProgram(Program2022Key))
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(AssociatedCommandRecoverMultisig)}, instruction.Data)
	require.Len(t, instruction.Accounts, 9)

	assert.False(t, instruction.Accounts[5].IsSigner)
	assert.True(t, instruction.Accounts[5].IsWritable)
	assert.Equal(t, Program2022Key, instruction.Accounts[6].PublicKey)
	for i, signer := range signers {
		assert.Equal(t, signer, instruction.Accounts[7+i].PublicKey)
		assert.True(t, instruction.Accounts[7+i].IsSigner)
		assert.False(t, instruction.Accounts[7+i].IsWritable)
	}

	decompiled, err := DecompileRecoverNested(solana.NewLegacyTransaction(payer, instruction).Message, 0)
	require.NoError(t, err)
	assert.Equal(t, AssociatedCommandRecoverMultisig, decompiled.Command)
	assert.Equal(t, signers, decompiled.Signers)

	_, err = RecoverMultisig(wallet, ownerMint, nestedMint, nil)
	assert.Error(t, err)
	_, err = RecoverMultisig(wallet, ownerMint, nestedMint, generateKeys(t, MaxSigners+1))
	assert.Error(t, err)
}

func TestAssociatedAccountCache(t *testing.T) {
	keys := generateKeys(t, 3)

	cache := NewAssociatedAccountCache(2)

	expected, expectedBump, err := GetAssociatedAccountWithProgram(keys[0], keys[1], ProgramKey)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		actual, bump, err := cache.Get(keys[0], keys[1], ProgramKey)
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
		assert.Equal(t, expectedBump, bump)
	}
	assert.Equal(t, 1, cache.Len())

	// Different token programs derive different addresses.
	other, _, err := cache.Get(keys[0], keys[1], Program2022Key)
	require.NoError(t, err)
	assert.NotEqual(t, expected, other)
	assert.Equal(t, 2, cache.Len())

	_, _, err = cache.Get(keys[2], keys[1], ProgramKey)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())
}
