package runtime

import (
	"context"
	"crypto/ed25519"

	"github.com/solana-program/associated-token-account/pkg/solana"
	"github.com/solana-program/associated-token-account/pkg/solana/system"
)

// MaxInvokeDepth is the deepest instruction stack a transaction may build,
// counting the top-level instruction as depth 1.
//
// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/program-runtime/src/compute_budget.rs#L10
const MaxInvokeDepth = 4

// MaxReturnDataSize bounds the data a program may publish with SetReturnData.
const MaxReturnDataSize = 1024

// Program is an on-chain program executed by a runtime.
//
// Execute receives the instruction's accounts in positional order. A failure
// is reported as a solana.InstructionErrorKey or a solana.CustomError, which
// may be wrapped with github.com/pkg/errors.
type Program interface {
	Execute(ctx context.Context, env Environment, accounts []*solana.AccountInfo, data []byte) error
}

// ProgramFunc adapts a function to the Program interface.
type ProgramFunc func(ctx context.Context, env Environment, accounts []*solana.AccountInfo, data []byte) error

func (f ProgramFunc) Execute(ctx context.Context, env Environment, accounts []*solana.AccountInfo, data []byte) error {
	return f(ctx, env, accounts, data)
}

// Environment is the view of the runtime available to an executing program.
type Environment interface {
	// ProgramID returns the address of the executing program.
	ProgramID() ed25519.PublicKey

	// Invoke performs a cross-program invocation. Every account referenced by
	// the instruction, and the target program itself, must be among the
	// accounts of the calling instruction.
	//
	// Each entry of signerSeeds is the seed list of a program derived address
	// of the calling program, which is then treated as a signer.
	Invoke(ctx context.Context, ix solana.Instruction, signerSeeds ...[][]byte) error

	// Rent returns the rent parameters of the cluster.
	Rent() system.Rent

	// ReturnData returns the data most recently set in the transaction and
	// the program that set it.
	ReturnData() (ed25519.PublicKey, []byte)

	// SetReturnData publishes data for the caller to read after an Invoke.
	SetReturnData(data []byte) error
}
