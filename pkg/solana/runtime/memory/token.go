package memory

import (
	"bytes"
	"context"
	"crypto/ed25519"

	bin "github.com/gagliardetto/binary"
	"github.com/pkg/errors"

	"github.com/solana-program/associated-token-account/pkg/solana"
	"github.com/solana-program/associated-token-account/pkg/solana/runtime"
	"github.com/solana-program/associated-token-account/pkg/solana/token"
)

// tokenProgram emulates the instructions of the token programs that
// associated token accounts depend on. The same implementation serves both
// programs. Extensions are only honoured when running as Token-2022.
type tokenProgram struct{}

func (p *tokenProgram) Execute(_ context.Context, env runtime.Environment, accounts []*solana.AccountInfo, data []byte) error {
	if len(data) == 0 {
		return solana.InstructionErrorInvalidInstructionData
	}

	decoder := bin.NewBinDecoder(data[1:])

	switch token.Command(data[0]) {
	case token.CommandInitializeAccount3:
		owner, err := decoder.ReadBytes(ed25519.PublicKeySize)
		if err != nil {
			return solana.InstructionErrorInvalidInstructionData
		}
		if len(accounts) < 2 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}
		return initializeAccount(env, accounts[0], accounts[1], owner)

	case token.CommandInitializeMultisig:
		required, err := decoder.ReadByte()
		if err != nil {
			return solana.InstructionErrorInvalidInstructionData
		}
		if len(accounts) < 2 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}
		return initializeMultisig(env, accounts[0], accounts[2:], required)

	case token.CommandInitializeImmutableOwner:
		if len(accounts) < 1 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}
		return initializeImmutableOwner(env, accounts[0])

	case token.CommandTransferChecked:
		amount, err := decoder.ReadUint64(bin.LE)
		if err != nil {
			return solana.InstructionErrorInvalidInstructionData
		}
		decimals, err := decoder.ReadByte()
		if err != nil {
			return solana.InstructionErrorInvalidInstructionData
		}
		if len(accounts) < 4 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}
		return transferChecked(env, accounts[0], accounts[1], accounts[2], accounts[3], accounts[4:], amount, decimals)

	case token.CommandCloseAccount:
		if len(accounts) < 3 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}
		return closeAccount(env, accounts[0], accounts[1], accounts[2], accounts[3:])

	case token.CommandGetAccountDataSize:
		if len(accounts) < 1 {
			return solana.InstructionErrorNotEnoughAccountKeys
		}
		if len(data[1:])%2 != 0 {
			return solana.InstructionErrorInvalidInstructionData
		}

		var requested []token.ExtensionType
		for decoder.Remaining() > 0 {
			extension, err := decoder.ReadUint16(bin.LE)
			if err != nil {
				return solana.InstructionErrorInvalidInstructionData
			}
			requested = append(requested, token.ExtensionType(extension))
		}
		return getAccountDataSize(env, accounts[0], requested)

	default:
		return errors.Wrapf(token.ErrorInvalidInstruction, "unsupported token command %d", data[0])
	}
}

func checkProgramOwner(env runtime.Environment, account *solana.AccountInfo) error {
	if !account.IsOwnedBy(env.ProgramID()) {
		return errors.Wrapf(solana.InstructionErrorIncorrectProgramID, "account %s", solana.Base58(account.Key))
	}
	return nil
}

func unpackMint(env runtime.Environment, account *solana.AccountInfo) (*token.Mint, error) {
	if err := checkProgramOwner(env, account); err != nil {
		return nil, err
	}

	var mint token.Mint
	if !mint.Unmarshal(account.Data) || !mint.IsInitialized {
		return nil, errors.Wrapf(token.ErrorInvalidMint, "mint %s", solana.Base58(account.Key))
	}
	return &mint, nil
}

func unpackTokenAccount(env runtime.Environment, account *solana.AccountInfo) (*token.Account, error) {
	if err := checkProgramOwner(env, account); err != nil {
		return nil, err
	}

	state, ok := token.UnpackAccount(account.Data)
	if !ok {
		return nil, errors.Wrapf(token.ErrorUninitializedState, "account %s", solana.Base58(account.Key))
	}
	return state, nil
}

// accountExtensions returns the extension types already laid out in an
// uninitialized account buffer.
func accountExtensions(data []byte) ([]token.ExtensionType, error) {
	if len(data) <= token.AccountTypeOffset {
		return nil, nil
	}

	switch token.AccountType(data[token.AccountTypeOffset]) {
	case token.AccountTypeUninitialized:
		return nil, nil
	case token.AccountTypeAccount:
		return token.ParseMintExtensions(data)
	default:
		return nil, solana.InstructionErrorInvalidAccountData
	}
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/e651623033fca7997ccd21e55d0f2388473122f9/token/program-2022/src/processor.rs#L127
func initializeAccount(env runtime.Environment, account, mintInfo *solana.AccountInfo, owner ed25519.PublicKey) error {
	if err := checkProgramOwner(env, account); err != nil {
		return err
	}

	if len(account.Data) < token.AccountSize {
		return errors.Wrapf(solana.InstructionErrorInvalidAccountData, "account %s too small", solana.Base58(account.Key))
	}
	if account.Data[token.AccountStateOffset] != byte(token.AccountStateUninitialized) {
		return errors.Wrapf(token.ErrorAlreadyInUse, "account %s", solana.Base58(account.Key))
	}

	if !env.Rent().IsExempt(account.Lamports, uint64(len(account.Data))) {
		return errors.Wrapf(token.ErrorNotRentExempt, "account %s", solana.Base58(account.Key))
	}

	if _, err := unpackMint(env, mintInfo); err != nil {
		return err
	}

	if token.IsLegacyProgram(env.ProgramID()) {
		if len(account.Data) != token.AccountSize {
			return errors.Wrapf(solana.InstructionErrorInvalidAccountData, "account %s has length %d", solana.Base58(account.Key), len(account.Data))
		}
	} else {
		existing, err := accountExtensions(account.Data)
		if err != nil {
			return errors.Wrap(solana.InstructionErrorInvalidAccountData, err.Error())
		}

		mintExtensions, err := token.ParseMintExtensions(mintInfo.Data)
		if err != nil {
			return errors.Wrap(solana.InstructionErrorInvalidAccountData, err.Error())
		}

		extensions := append(existing, token.RequiredInitAccountExtensions(mintExtensions)...)
		if len(extensions) > 0 {
			size, err := token.TryCalculateAccountLen(extensions)
			if err != nil {
				return errors.Wrap(solana.InstructionErrorInvalidAccountData, err.Error())
			}
			if size > len(account.Data) {
				return errors.Wrapf(solana.InstructionErrorInvalidAccountData, "account needs %d bytes, has %d", size, len(account.Data))
			}
			if err := token.WriteAccountExtensions(account.Data, extensions); err != nil {
				return errors.Wrap(solana.InstructionErrorInvalidAccountData, err.Error())
			}
		} else if len(account.Data) > token.AccountSize {
			account.Data[token.AccountTypeOffset] = byte(token.AccountTypeAccount)
		}
	}

	state := token.Account{
		Mint:  mintInfo.Key,
		Owner: owner,
		State: token.AccountStateInitialized,
	}
	state.MarshalInto(account.Data)

	return nil
}

func initializeMultisig(env runtime.Environment, account *solana.AccountInfo, signers []*solana.AccountInfo, required byte) error {
	if err := checkProgramOwner(env, account); err != nil {
		return err
	}

	if len(account.Data) != token.MultisigAccountSize {
		return errors.Wrapf(solana.InstructionErrorInvalidAccountData, "multisig %s has length %d", solana.Base58(account.Key), len(account.Data))
	}

	var existing token.Multisig
	if existing.Unmarshal(account.Data) {
		return errors.Wrapf(token.ErrorAlreadyInUse, "multisig %s", solana.Base58(account.Key))
	}

	if !env.Rent().IsExempt(account.Lamports, uint64(len(account.Data))) {
		return errors.Wrapf(token.ErrorNotRentExempt, "multisig %s", solana.Base58(account.Key))
	}

	if len(signers) == 0 || len(signers) > token.MaxSigners {
		return errors.Wrapf(token.ErrorInvalidNumberOfProvidedSigners, "%d signers", len(signers))
	}
	if required == 0 || int(required) > len(signers) {
		return errors.Wrapf(token.ErrorInvalidNumberOfRequiredSigners, "%d of %d", required, len(signers))
	}

	multisig := token.Multisig{
		M:             required,
		N:             byte(len(signers)),
		IsInitialized: true,
	}
	for _, signer := range signers {
		multisig.Signers = append(multisig.Signers, signer.Key)
	}
	copy(account.Data, multisig.Marshal())

	return nil
}

func initializeImmutableOwner(env runtime.Environment, account *solana.AccountInfo) error {
	if err := checkProgramOwner(env, account); err != nil {
		return err
	}

	if len(account.Data) >= token.AccountSize && account.Data[token.AccountStateOffset] != byte(token.AccountStateUninitialized) {
		return errors.Wrapf(token.ErrorAlreadyInUse, "account %s", solana.Base58(account.Key))
	}

	// The legacy program accepts the instruction and does nothing.
	if token.IsLegacyProgram(env.ProgramID()) {
		return nil
	}

	existing, err := accountExtensions(account.Data)
	if err != nil {
		return err
	}

	extensions := append(existing, token.ExtensionImmutableOwner)
	size, err := token.TryCalculateAccountLen(extensions)
	if err != nil {
		return errors.Wrap(solana.InstructionErrorInvalidAccountData, err.Error())
	}
	if size > len(account.Data) {
		return errors.Wrapf(solana.InstructionErrorInvalidAccountData, "account needs %d bytes, has %d", size, len(account.Data))
	}

	return token.WriteAccountExtensions(account.Data, extensions)
}

// validateOwner checks that authority may act for expected, either as a
// signer or as a multisig with enough signing members.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/e651623033fca7997ccd21e55d0f2388473122f9/token/program/src/processor.rs#L1012
func validateOwner(env runtime.Environment, expected ed25519.PublicKey, authority *solana.AccountInfo, signers []*solana.AccountInfo) error {
	if !authority.Is(expected) {
		return errors.Wrapf(token.ErrorOwnerMismatch, "authority %s", solana.Base58(authority.Key))
	}

	if authority.IsOwnedBy(env.ProgramID()) && len(authority.Data) == token.MultisigAccountSize {
		var multisig token.Multisig
		if !multisig.Unmarshal(authority.Data) {
			return errors.Wrapf(solana.InstructionErrorInvalidAccountData, "multisig %s", solana.Base58(authority.Key))
		}

		matched := make([]bool, multisig.N)
		var count int
		for _, signer := range signers {
			for i, member := range multisig.Signers[:multisig.N] {
				if matched[i] || !bytes.Equal(member, signer.Key) {
					continue
				}
				if !signer.IsSigner {
					return errors.Wrapf(solana.InstructionErrorMissingRequiredSignature, "multisig member %s", solana.Base58(signer.Key))
				}
				matched[i] = true
				count++
				break
			}
		}

		if count < int(multisig.M) {
			return errors.Wrapf(solana.InstructionErrorMissingRequiredSignature, "multisig %s: %d of %d", solana.Base58(authority.Key), count, multisig.M)
		}
		return nil
	}

	if !authority.IsSigner {
		return errors.Wrapf(solana.InstructionErrorMissingRequiredSignature, "authority %s", solana.Base58(authority.Key))
	}
	return nil
}

func transferChecked(env runtime.Environment, source, mintInfo, dest, authority *solana.AccountInfo, signers []*solana.AccountInfo, amount uint64, decimals byte) error {
	sourceState, err := unpackTokenAccount(env, source)
	if err != nil {
		return err
	}
	destState, err := unpackTokenAccount(env, dest)
	if err != nil {
		return err
	}

	if sourceState.State == token.AccountStateFrozen || destState.State == token.AccountStateFrozen {
		return token.ErrorAccountFrozen
	}
	if sourceState.Amount < amount {
		return errors.Wrapf(token.ErrorInsufficientFunds, "balance %d, need %d", sourceState.Amount, amount)
	}
	if !bytes.Equal(sourceState.Mint, destState.Mint) || !mintInfo.Is(sourceState.Mint) {
		return token.ErrorMintMismatch
	}

	mint, err := unpackMint(env, mintInfo)
	if err != nil {
		return err
	}
	if mint.Decimals != decimals {
		return errors.Wrapf(token.ErrorMintDecimalsMismatch, "mint has %d decimals, got %d", mint.Decimals, decimals)
	}

	if err := validateOwner(env, sourceState.Owner, authority, signers); err != nil {
		return err
	}

	if source.Is(dest.Key) {
		return nil
	}

	sourceState.Amount -= amount
	destState.Amount += amount
	sourceState.MarshalInto(source.Data)
	destState.MarshalInto(dest.Data)

	return nil
}

func closeAccount(env runtime.Environment, account, dest, authority *solana.AccountInfo, signers []*solana.AccountInfo) error {
	if account.Is(dest.Key) {
		return errors.Wrap(solana.InstructionErrorInvalidAccountData, "cannot close an account into itself")
	}

	state, err := unpackTokenAccount(env, account)
	if err != nil {
		return err
	}

	if state.IsNative == nil && state.Amount != 0 {
		return errors.Wrapf(token.ErrorNonNativeHasBalance, "account %s holds %d", solana.Base58(account.Key), state.Amount)
	}

	closeAuthority := state.Owner
	if len(state.CloseAuthority) > 0 {
		closeAuthority = state.CloseAuthority
	}
	if err := validateOwner(env, closeAuthority, authority, signers); err != nil {
		return err
	}

	dest.Lamports += account.Lamports
	account.Lamports = 0
	account.Data = make([]byte, len(account.Data))

	return nil
}

// getAccountDataSize publishes the size of an account for mintInfo carrying
// the requested account extensions in addition to those the mint requires.
func getAccountDataSize(env runtime.Environment, mintInfo *solana.AccountInfo, requested []token.ExtensionType) error {
	if _, err := unpackMint(env, mintInfo); err != nil {
		return err
	}

	size := token.AccountSize
	if !token.IsLegacyProgram(env.ProgramID()) {
		mintExtensions, err := token.ParseMintExtensions(mintInfo.Data)
		if err != nil {
			return errors.Wrap(solana.InstructionErrorInvalidAccountData, err.Error())
		}

		size, err = token.TryCalculateAccountLen(append(token.RequiredInitAccountExtensions(mintExtensions), requested...))
		if err != nil {
			return errors.Wrap(solana.InstructionErrorInvalidArgument, err.Error())
		}
	}

	encoded := make([]byte, 8)
	bin.LE.PutUint64(encoded, uint64(size))
	return env.SetReturnData(encoded)
}
