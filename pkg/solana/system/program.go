package system

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/solana-program/associated-token-account/pkg/solana"
)

// ProgramKey is the system program, the all zero key.
var ProgramKey [32]byte

// Command is the little endian u32 that prefixes system instruction data.
type Command uint32

const (
	CommandCreateAccount Command = iota
	CommandAssign
	CommandTransfer
	CommandCreateAccountWithSeed
	CommandAdvanceNonceAccount
	CommandWithdrawNonceAccount
	CommandInitializeNonceAccount
	CommandAuthorizeNonceAccount
	CommandAllocate
	CommandAllocateWithSeed
	CommandAssignWithSeed
	CommandTransferWithSeed
	CommandUpgradeNonceAccount
	CommandCreateAccountPrefunded
)

// System program failures, as returned in solana.InstructionErrorCustom.
const (
	ErrorAccountAlreadyInUse solana.CustomError = iota
	ErrorResultWithNegativeLamports
	ErrorInvalidProgramID
	ErrorInvalidAccountDataLength
	ErrorMaxSeedLengthExceeded
	ErrorAddressWithSeedMismatch
)

// MaxPermittedDataLength is the largest account a single instruction may
// allocate.
const MaxPermittedDataLength = 10 * 1024 * 1024

func commandData(command Command) []byte {
	return binary.LittleEndian.AppendUint32(nil, uint32(command))
}

// CreateAccount funds, allocates and assigns address, which must not exist.
//
//	0. [writable, signer] funder
//	1. [writable, signer] new account
func CreateAccount(funder, address, owner ed25519.PublicKey, lamports, size uint64) solana.Instruction {
	return createAccount(CommandCreateAccount, funder, address, owner, lamports, size)
}

// CreateAccountPrefunded is CreateAccount for an address that may already hold
// lamports. Only lamports, the shortfall, is moved from funder. The layout
// matches CreateAccount.
func CreateAccountPrefunded(funder, address, owner ed25519.PublicKey, lamports, size uint64) solana.Instruction {
	return createAccount(CommandCreateAccountPrefunded, funder, address, owner, lamports, size)
}

func createAccount(command Command, funder, address, owner ed25519.PublicKey, lamports, size uint64) solana.Instruction {
	data := commandData(command)
	data = binary.LittleEndian.AppendUint64(data, lamports)
	data = binary.LittleEndian.AppendUint64(data, size)
	data = append(data, owner...)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(funder, true),
		solana.NewAccountMeta(address, true),
	)
}

// Assign sets the owner of address.
//
//	0. [writable, signer] account
func Assign(address, owner ed25519.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		ProgramKey[:],
		append(commandData(CommandAssign), owner...),
		solana.NewAccountMeta(address, true),
	)
}

// Transfer moves lamports between system owned accounts.
//
//	0. [writable, signer] from
//	1. [writable]         to
func Transfer(from, to ed25519.PublicKey, lamports uint64) solana.Instruction {
	return solana.NewInstruction(
		ProgramKey[:],
		binary.LittleEndian.AppendUint64(commandData(CommandTransfer), lamports),
		solana.NewAccountMeta(from, true),
		solana.NewAccountMeta(to, false),
	)
}

// Allocate sets the data length of an empty, system owned account.
//
//	0. [writable, signer] account
func Allocate(address ed25519.PublicKey, size uint64) solana.Instruction {
	return solana.NewInstruction(
		ProgramKey[:],
		binary.LittleEndian.AppendUint64(commandData(CommandAllocate), size),
		solana.NewAccountMeta(address, true),
	)
}
