package token

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/mr-tron/base58/base58"

	"github.com/solana-program/associated-token-account/pkg/solana"
	"github.com/solana-program/associated-token-account/pkg/solana/system"
)

var (
	// ProgramKey is the legacy token program, which has no extension support.
	ProgramKey = mustDecodeKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	// Program2022Key is the Token-2022 program, which supports mint and
	// account extensions.
	Program2022Key = mustDecodeKey("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
)

func mustDecodeKey(s string) ed25519.PublicKey {
	key, err := base58.Decode(s)
	if err != nil {
		panic(err)
	}
	return key
}

func IsLegacyProgram(program ed25519.PublicKey) bool {
	return bytes.Equal(program, ProgramKey)
}

func Is2022Program(program ed25519.PublicKey) bool {
	return bytes.Equal(program, Program2022Key)
}

// IsKnownProgram reports whether program is either token program.
func IsKnownProgram(program ed25519.PublicKey) bool {
	return IsLegacyProgram(program) || Is2022Program(program)
}

// Command is the first byte of token program instruction data. Both programs
// share the numbering.
type Command byte

const (
	CommandInitializeMint Command = iota
	CommandInitializeAccount
	CommandInitializeMultisig
	CommandTransfer
	CommandApprove
	CommandRevoke
	CommandSetAuthority
	CommandMintTo
	CommandBurn
	CommandCloseAccount
	CommandFreezeAccount
	CommandThawAccount
	CommandTransferChecked
	CommandApproveChecked
	CommandMintToChecked
	CommandBurnChecked
	CommandInitializeAccount2
	CommandSyncNative
	CommandInitializeAccount3
	CommandInitializeMultisig2
	CommandInitializeMint2
	CommandGetAccountDataSize
	CommandInitializeImmutableOwner
)

// Token program failures, as returned in solana.InstructionErrorCustom.
const (
	ErrorNotRentExempt solana.CustomError = iota
	ErrorInsufficientFunds
	ErrorInvalidMint
	ErrorMintMismatch
	ErrorOwnerMismatch
	ErrorFixedSupply
	ErrorAlreadyInUse
	ErrorInvalidNumberOfProvidedSigners
	ErrorInvalidNumberOfRequiredSigners
	ErrorUninitializedState
	ErrorNativeNotSupported
	ErrorNonNativeHasBalance
	ErrorInvalidInstruction
	ErrorInvalidState
	ErrorOverflow
	ErrorAuthorityTypeNotSupported
	ErrorMintCannotFreeze
	ErrorAccountFrozen
	ErrorMintDecimalsMismatch
)

// InitializeAccount3 initializes account for mint, with owner passed as data
// instead of as an account.
//
//	0. [writable] account
//	1. []         mint
func InitializeAccount3(program, account, mint, owner ed25519.PublicKey) solana.Instruction {
	data := append([]byte{byte(CommandInitializeAccount3)}, owner...)
	return solana.NewInstruction(
		program,
		data,
		solana.NewAccountMeta(account, false),
		solana.NewReadonlyAccountMeta(mint, false),
	)
}

// InitializeImmutableOwner must precede InitializeAccount3 on Token-2022
// accounts. The legacy program accepts it as a no-op.
//
//	0. [writable] account
func InitializeImmutableOwner(program, account ed25519.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		program,
		[]byte{byte(CommandInitializeImmutableOwner)},
		solana.NewAccountMeta(account, false),
	)
}

// GetAccountDataSize asks program for the length of an account for mint with
// the given extensions in addition to those the mint requires. The result is
// a little endian u64 set as return data.
//
//	0. [] mint
func GetAccountDataSize(program, mint ed25519.PublicKey, extensions ...ExtensionType) solana.Instruction {
	data := []byte{byte(CommandGetAccountDataSize)}
	for _, extension := range extensions {
		data = binary.LittleEndian.AppendUint16(data, uint16(extension))
	}
	return solana.NewInstruction(program, data, solana.NewReadonlyAccountMeta(mint, false))
}

// InitializeMultisig initializes an m-of-n multisig over signers.
//
//	0. [writable] multisig
//	1. []         rent sysvar
//	2. ..2+N []   signers
func InitializeMultisig(program, account ed25519.PublicKey, m byte, signers ...ed25519.PublicKey) solana.Instruction {
	accounts := []solana.AccountMeta{
		solana.NewAccountMeta(account, false),
		solana.NewReadonlyAccountMeta(system.RentSysVar, false),
	}
	for _, signer := range signers {
		accounts = append(accounts, solana.NewReadonlyAccountMeta(signer, false))
	}

	return solana.NewInstruction(program, []byte{byte(CommandInitializeMultisig), m}, accounts...)
}

// TransferChecked moves amount tokens from source to dest, failing unless
// decimals matches the mint.
//
//	0. [writable] source
//	1. []         mint
//	2. [writable] destination
//	3. [signer]   source owner
func TransferChecked(program, source, mint, dest, owner ed25519.PublicKey, amount uint64, decimals byte) solana.Instruction {
	data := []byte{byte(CommandTransferChecked)}
	data = binary.LittleEndian.AppendUint64(data, amount)
	data = append(data, decimals)

	return solana.NewInstruction(
		program,
		data,
		solana.NewAccountMeta(source, false),
		solana.NewReadonlyAccountMeta(mint, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(owner, true),
	)
}

// CloseAccount closes an empty token account, moving its lamports to dest.
//
//	0. [writable] account
//	1. [writable] destination
//	2. [signer]   owner
func CloseAccount(program, account, dest, owner ed25519.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		program,
		[]byte{byte(CommandCloseAccount)},
		solana.NewAccountMeta(account, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(owner, true),
	)
}
