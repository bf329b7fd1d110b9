package ata

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/solana-program/associated-token-account/pkg/solana"
	"github.com/solana-program/associated-token-account/pkg/solana/token"
)

// Instruction is a decoded associated token account program instruction.
//
// Hints are trusted by the program to varying degrees. A Bump is verified
// against the supplied address. An AccountLen is used as-is for allocation and
// is only rejected downstream, by the token program, if it is too small for
// the mint. The owner bump of RecoverBumps is used as-is to sign for the owner
// associated account.
type Instruction struct {
	Command token.AssociatedCommand

	// Create family
	Bump       *uint8
	AccountLen *uint16

	// Recover family
	RecoverBumps *RecoverBumps
}

// RecoverBumps are the bump hints of a recover instruction.
type RecoverBumps struct {
	Owner       uint8
	Nested      uint8
	Destination uint8
}

// DecodeInstruction decodes raw instruction data. Empty data is a Create
// without hints. An account length hint above maxAccountLen is rejected.
//
// Every malformed input is reported as InvalidInstructionData.
func DecodeInstruction(data []byte, maxAccountLen uint64) (*Instruction, error) {
	if len(data) == 0 {
		return &Instruction{Command: token.AssociatedCommandCreate}, nil
	}

	ix := &Instruction{
		Command: token.AssociatedCommand(data[0]),
	}
	args := data[1:]

	switch ix.Command {
	case token.AssociatedCommandCreate, token.AssociatedCommandCreateIdempotent, token.AssociatedCommandCreateAccountPrefunded:
		switch len(args) {
		case 0:
		case 1:
			bump := args[0]
			ix.Bump = &bump
		case 3:
			accountLen := binary.LittleEndian.Uint16(args[1:])
			if uint64(accountLen) > maxAccountLen {
				return nil, errors.Wrapf(solana.InstructionErrorInvalidInstructionData, "account length hint %d exceeds %d", accountLen, maxAccountLen)
			}

			bump := args[0]
			ix.Bump = &bump
			ix.AccountLen = &accountLen
		default:
			return nil, errors.Wrapf(solana.InstructionErrorInvalidInstructionData, "invalid create arguments size: %d", len(args))
		}

	case token.AssociatedCommandRecoverNested, token.AssociatedCommandRecoverMultisig:
		switch len(args) {
		case 0:
		case 3:
			ix.RecoverBumps = &RecoverBumps{
				Owner:       args[0],
				Nested:      args[1],
				Destination: args[2],
			}
		default:
			return nil, errors.Wrapf(solana.InstructionErrorInvalidInstructionData, "invalid recover arguments size: %d", len(args))
		}

	default:
		return nil, errors.Wrapf(solana.InstructionErrorInvalidInstructionData, "unknown instruction %d", data[0])
	}

	return ix, nil
}
