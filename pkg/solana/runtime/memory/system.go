package memory

import (
	"context"
	"crypto/ed25519"

	bin "github.com/gagliardetto/binary"
	"github.com/pkg/errors"

	"github.com/solana-program/associated-token-account/pkg/solana"
	"github.com/solana-program/associated-token-account/pkg/solana/runtime"
	"github.com/solana-program/associated-token-account/pkg/solana/system"
)

// systemProgram emulates the subset of the system program used to create and
// fund accounts.
type systemProgram struct{}

func (p *systemProgram) Execute(_ context.Context, _ runtime.Environment, accounts []*solana.AccountInfo, data []byte) error {
	decoder := bin.NewBinDecoder(data)

	command, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return solana.InstructionErrorInvalidInstructionData
	}

	switch system.Command(command) {
	case system.CommandCreateAccount, system.CommandCreateAccountPrefunded:
		lamports, space, owner, err := decodeCreateAccount(decoder)
		if err != nil {
			return err
		}
		if len(accounts) < 2 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}

		if system.Command(command) == system.CommandCreateAccount {
			return createAccount(accounts[0], accounts[1], lamports, space, owner)
		}
		return createAccountPrefunded(accounts[0], accounts[1], lamports, space, owner)

	case system.CommandAssign:
		owner, err := decoder.ReadBytes(ed25519.PublicKeySize)
		if err != nil {
			return solana.InstructionErrorInvalidInstructionData
		}
		if len(accounts) < 1 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}
		return assign(accounts[0], owner)

	case system.CommandTransfer:
		lamports, err := decoder.ReadUint64(bin.LE)
		if err != nil {
			return solana.InstructionErrorInvalidInstructionData
		}
		if len(accounts) < 2 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}
		return transfer(accounts[0], accounts[1], lamports)

	case system.CommandAllocate:
		space, err := decoder.ReadUint64(bin.LE)
		if err != nil {
			return solana.InstructionErrorInvalidInstructionData
		}
		if len(accounts) < 1 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}
		return allocate(accounts[0], space)

	default:
		return errors.Wrapf(solana.InstructionErrorInvalidInstructionData, "unsupported system command %d", command)
	}
}

func decodeCreateAccount(decoder *bin.Decoder) (lamports, space uint64, owner ed25519.PublicKey, err error) {
	if lamports, err = decoder.ReadUint64(bin.LE); err != nil {
		return 0, 0, nil, solana.InstructionErrorInvalidInstructionData
	}
	if space, err = decoder.ReadUint64(bin.LE); err != nil {
		return 0, 0, nil, solana.InstructionErrorInvalidInstructionData
	}

	b, err := decoder.ReadBytes(ed25519.PublicKeySize)
	if err != nil {
		return 0, 0, nil, solana.InstructionErrorInvalidInstructionData
	}

	return lamports, space, b, nil
}

// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/programs/system/src/system_processor.rs#L146
func createAccount(from, to *solana.AccountInfo, lamports, space uint64, owner ed25519.PublicKey) error {
	if to.Lamports > 0 {
		return errors.Wrapf(system.ErrorAccountAlreadyInUse, "account %s already holds lamports", solana.Base58(to.Key))
	}

	if err := allocate(to, space); err != nil {
		return err
	}
	if err := assign(to, owner); err != nil {
		return err
	}

	return transfer(from, to, lamports)
}

// createAccountPrefunded allocates and assigns regardless of the balance
// already held by the new account, then moves lamports from the funder.
func createAccountPrefunded(from, to *solana.AccountInfo, lamports, space uint64, owner ed25519.PublicKey) error {
	if err := allocate(to, space); err != nil {
		return err
	}
	if err := assign(to, owner); err != nil {
		return err
	}

	if lamports == 0 {
		return nil
	}
	return transfer(from, to, lamports)
}

func allocate(account *solana.AccountInfo, space uint64) error {
	if !account.IsSigner {
		return errors.Wrapf(solana.InstructionErrorMissingRequiredSignature, "allocate %s", solana.Base58(account.Key))
	}

	if len(account.Data) > 0 || !account.IsOwnedBy(system.ProgramKey[:]) {
		return errors.Wrapf(system.ErrorAccountAlreadyInUse, "account %s already in use", solana.Base58(account.Key))
	}

	if space > system.MaxPermittedDataLength {
		return errors.Wrapf(system.ErrorInvalidAccountDataLength, "space %d", space)
	}

	account.Data = make([]byte, space)
	return nil
}

func assign(account *solana.AccountInfo, owner ed25519.PublicKey) error {
	if account.IsOwnedBy(owner) {
		return nil
	}

	if !account.IsSigner {
		return errors.Wrapf(solana.InstructionErrorMissingRequiredSignature, "assign %s", solana.Base58(account.Key))
	}

	account.Owner = append(ed25519.PublicKey(nil), owner...)
	return nil
}

func transfer(from, to *solana.AccountInfo, lamports uint64) error {
	if !from.IsSigner {
		return errors.Wrapf(solana.InstructionErrorMissingRequiredSignature, "transfer from %s", solana.Base58(from.Key))
	}

	if len(from.Data) > 0 {
		return errors.Wrap(solana.InstructionErrorInvalidArgument, "transfer from an account with data")
	}

	if from.Lamports < lamports {
		return errors.Wrapf(system.ErrorResultWithNegativeLamports, "insufficient lamports %d, need %d", from.Lamports, lamports)
	}

	from.Lamports -= lamports
	to.Lamports += lamports
	return nil
}
