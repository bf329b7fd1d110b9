package ata

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/solana-program/associated-token-account/pkg/solana"
	"github.com/solana-program/associated-token-account/pkg/solana/token"
)

const (
	minCreateAccounts  = 6
	minRecoverAccounts = 7
)

type createAccounts struct {
	payer         *solana.AccountInfo
	associated    *solana.AccountInfo
	wallet        *solana.AccountInfo
	mint          *solana.AccountInfo
	systemProgram *solana.AccountInfo
	tokenProgram  *solana.AccountInfo

	// rentSysvar is optional, and its address is not checked.
	rentSysvar *solana.AccountInfo
}

func parseCreateAccounts(accounts []*solana.AccountInfo) (*createAccounts, error) {
	if len(accounts) < minCreateAccounts {
		return nil, errors.Wrapf(solana.InstructionErrorNotEnoughAccountKeys, "create requires %d accounts, got %d", minCreateAccounts, len(accounts))
	}

	parsed := &createAccounts{
		payer:         accounts[0],
		associated:    accounts[1],
		wallet:        accounts[2],
		mint:          accounts[3],
		systemProgram: accounts[4],
		tokenProgram:  accounts[5],
	}
	if len(accounts) > minCreateAccounts {
		parsed.rentSysvar = accounts[6]
	}
	return parsed, nil
}

type recoverAccounts struct {
	nested       *solana.AccountInfo
	nestedMint   *solana.AccountInfo
	destination  *solana.AccountInfo
	owner        *solana.AccountInfo
	ownerMint    *solana.AccountInfo
	wallet       *solana.AccountInfo
	tokenProgram *solana.AccountInfo

	signers []*solana.AccountInfo
}

func parseRecoverAccounts(accounts []*solana.AccountInfo) (*recoverAccounts, error) {
	if len(accounts) < minRecoverAccounts {
		return nil, errors.Wrapf(solana.InstructionErrorNotEnoughAccountKeys, "recover requires %d accounts, got %d", minRecoverAccounts, len(accounts))
	}

	return &recoverAccounts{
		nested:       accounts[0],
		nestedMint:   accounts[1],
		destination:  accounts[2],
		owner:        accounts[3],
		ownerMint:    accounts[4],
		wallet:       accounts[5],
		tokenProgram: accounts[6],
		signers:      accounts[minRecoverAccounts:],
	}, nil
}

// validateExistingAccount checks that an account already owned by the token
// program is the initialized, canonical associated account for the wallet and
// mint.
func validateExistingAccount(program ed25519.PublicKey, accounts *createAccounts) error {
	state, ok := token.UnpackAccount(accounts.associated.Data)
	if !ok {
		return errors.Wrap(solana.InstructionErrorInvalidAccountData, "existing account is not a token account")
	}

	if !bytes.Equal(state.Owner, accounts.wallet.Key) {
		return errors.Wrapf(solana.InstructionErrorIllegalOwner, "existing account is owned by %s", solana.Base58(state.Owner))
	}
	if !bytes.Equal(state.Mint, accounts.mint.Key) {
		return errors.Wrapf(solana.InstructionErrorInvalidAccountData, "existing account is for mint %s", solana.Base58(state.Mint))
	}

	canonical, _, err := Derive(program, accounts.wallet.Key, accounts.tokenProgram.Key, accounts.mint.Key)
	if err != nil {
		return errors.Wrap(solana.InstructionErrorInvalidSeeds, err.Error())
	}
	if !accounts.associated.Is(canonical) {
		return errors.Wrap(solana.InstructionErrorInvalidSeeds, "existing account is not at the canonical address")
	}

	return nil
}

// validateCreateAddress checks the account to create against the address
// derived from the wallet, token program and mint, returning the bump to sign
// with.
//
// With a hint, the hint must be the canonical bump and derive the supplied
// address. Without one, the canonical address is searched for.
func validateCreateAddress(program ed25519.PublicKey, accounts *createAccounts, hint *uint8) (uint8, error) {
	wallet, tokenProgram, mint := accounts.wallet.Key, accounts.tokenProgram.Key, accounts.mint.Key

	if hint != nil {
		if hasBetterBump(program, wallet, tokenProgram, mint, *hint) {
			return 0, errors.Wrapf(solana.InstructionErrorInvalidInstructionData, "bump %d is not canonical", *hint)
		}
		if !Verify(program, wallet, tokenProgram, mint, *hint, accounts.associated.Key) {
			return 0, errors.Wrapf(solana.InstructionErrorInvalidSeeds, "bump %d does not derive %s", *hint, solana.Base58(accounts.associated.Key))
		}
		return *hint, nil
	}

	address, bump, err := Derive(program, wallet, tokenProgram, mint)
	if err != nil {
		return 0, errors.Wrap(solana.InstructionErrorInvalidSeeds, err.Error())
	}
	if !accounts.associated.Is(address) {
		return 0, errors.Wrapf(solana.InstructionErrorInvalidInstructionData, "expected associated account %s", solana.Base58(address))
	}
	return bump, nil
}

// validateRecoverAddresses checks the owner, nested and destination accounts
// against their derivations, returning the bump that signs for the owner
// associated account.
//
// With hints, the owner bump is taken as given. A wrong owner bump fails the
// signed transfer rather than this check.
func validateRecoverAddresses(program ed25519.PublicKey, accounts *recoverAccounts, hints *RecoverBumps) (uint8, error) {
	tokenProgram := accounts.tokenProgram.Key

	if hints != nil {
		if !Verify(program, accounts.owner.Key, tokenProgram, accounts.nestedMint.Key, hints.Nested, accounts.nested.Key) {
			return 0, errors.Wrap(solana.InstructionErrorInvalidSeeds, "nested associated account does not match seed derivation")
		}
		if !Verify(program, accounts.wallet.Key, tokenProgram, accounts.nestedMint.Key, hints.Destination, accounts.destination.Key) {
			return 0, errors.Wrap(solana.InstructionErrorInvalidSeeds, "destination associated account does not match seed derivation")
		}
		return hints.Owner, nil
	}

	owner, ownerBump, err := Derive(program, accounts.wallet.Key, tokenProgram, accounts.ownerMint.Key)
	if err != nil {
		return 0, errors.Wrap(solana.InstructionErrorInvalidSeeds, err.Error())
	}
	if !accounts.owner.Is(owner) {
		return 0, errors.Wrap(solana.InstructionErrorInvalidSeeds, "owner associated account does not match seed derivation")
	}

	nested, _, err := Derive(program, accounts.owner.Key, tokenProgram, accounts.nestedMint.Key)
	if err != nil {
		return 0, errors.Wrap(solana.InstructionErrorInvalidSeeds, err.Error())
	}
	if !accounts.nested.Is(nested) {
		return 0, errors.Wrap(solana.InstructionErrorInvalidSeeds, "nested associated account does not match seed derivation")
	}

	destination, _, err := Derive(program, accounts.wallet.Key, tokenProgram, accounts.nestedMint.Key)
	if err != nil {
		return 0, errors.Wrap(solana.InstructionErrorInvalidSeeds, err.Error())
	}
	if !accounts.destination.Is(destination) {
		return 0, errors.Wrap(solana.InstructionErrorInvalidSeeds, "destination associated account does not match seed derivation")
	}

	return ownerBump, nil
}

// validateWalletAuthority checks that the wallet authorizes a recovery, either
// by signing or as a token program multisig with enough of its signers
// present.
func validateWalletAuthority(command token.AssociatedCommand, accounts *recoverAccounts) error {
	wallet := accounts.wallet

	if command == token.AssociatedCommandRecoverMultisig {
		if !wallet.IsOwnedBy(accounts.tokenProgram.Key) {
			return errors.Wrap(solana.InstructionErrorIllegalOwner, "wallet is not a token program multisig")
		}
		return validateMultisig(wallet, accounts.signers)
	}

	if wallet.IsSigner {
		return nil
	}
	if !wallet.IsOwnedBy(accounts.tokenProgram.Key) {
		return errors.Wrap(solana.InstructionErrorMissingRequiredSignature, "wallet must sign")
	}
	return validateMultisig(wallet, accounts.signers)
}

// validateMultisig counts the distinct multisig signers present among
// signers. Listing a multisig signer without its signature fails outright.
func validateMultisig(wallet *solana.AccountInfo, signers []*solana.AccountInfo) error {
	var multisig token.Multisig
	if !multisig.Unmarshal(wallet.Data) {
		return errors.Wrap(solana.InstructionErrorInvalidAccountData, "wallet is not an initialized multisig")
	}

	matched := make([]bool, len(multisig.Signers))
	var count int
	for _, signer := range signers {
		for position, key := range multisig.Signers {
			if matched[position] || !signer.Is(key) {
				continue
			}
			if !signer.IsSigner {
				return errors.Wrapf(solana.InstructionErrorMissingRequiredSignature, "multisig signer %s did not sign", solana.Base58(key))
			}

			matched[position] = true
			count++
		}
	}

	if count < int(multisig.M) {
		return errors.Wrapf(solana.InstructionErrorMissingRequiredSignature, "%d of %d required multisig signers", count, multisig.M)
	}
	return nil
}
