package ata

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/solana-program/associated-token-account/pkg/metrics"
	"github.com/solana-program/associated-token-account/pkg/solana"
	"github.com/solana-program/associated-token-account/pkg/solana/runtime"
	"github.com/solana-program/associated-token-account/pkg/solana/token"
)

// Recover handles RecoverNested and RecoverMultisig. Every token held by a
// nested associated account, one owned by the wallet's associated account for
// the owner mint, is moved to the wallet's own associated account for the
// nested mint. The nested account is then closed to the wallet.
//
// Accounts:
//
//	0. [writable] nested associated token account
//	1. [] nested mint
//	2. [writable] destination associated token account
//	3. [] owner associated token account
//	4. [] owner mint
//	5. [writable, signer] wallet, not a signer if it is a multisig
//	6. [] token program
//	7.. [signer] multisig signers
func (p *Processor) Recover(ctx context.Context, env runtime.Environment, accounts []*solana.AccountInfo, ix *Instruction) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, commandName(ix.Command))
	defer tracer.End()

	err := p.recover(ctx, env, accounts, ix)
	if err != nil {
		tracer.OnError(err)
	}
	return err
}

func (p *Processor) recover(ctx context.Context, env runtime.Environment, accounts []*solana.AccountInfo, ix *Instruction) error {
	parsed, err := parseRecoverAccounts(accounts)
	if err != nil {
		return err
	}

	log := p.log.WithFields(logrus.Fields{
		"method":        commandName(ix.Command),
		"wallet":        solana.Base58(parsed.wallet.Key),
		"mint":          solana.Base58(parsed.nestedMint.Key),
		"token_program": solana.Base58(parsed.tokenProgram.Key),
		"ata":           solana.Base58(parsed.nested.Key),
	})

	ownerBump, err := validateRecoverAddresses(env.ProgramID(), parsed, ix.RecoverBumps)
	if err != nil {
		log.WithError(err).Info("recover addresses are invalid")
		return err
	}

	if _, ok := token.UnpackAccount(parsed.owner.Data); !ok {
		log.Info("owner associated account is not a token account")
		return errors.Wrap(solana.InstructionErrorInvalidAccountData, "owner associated account is not a token account")
	}

	if err := validateWalletAuthority(ix.Command, parsed); err != nil {
		log.WithError(err).Info("wallet did not authorize recovery")
		return err
	}

	nested, ok := token.UnpackAccount(parsed.nested.Data)
	if !ok {
		log.Info("nested associated account is not a token account")
		return errors.Wrap(solana.InstructionErrorInvalidAccountData, "nested associated account is not a token account")
	}

	var mint token.Mint
	if !mint.Unmarshal(parsed.nestedMint.Data) {
		log.Info("nested mint is invalid")
		return errors.Wrap(solana.InstructionErrorInvalidAccountData, "nested mint is invalid")
	}

	tokenProgram := parsed.tokenProgram.Key
	seeds := signerSeeds(parsed.wallet.Key, tokenProgram, parsed.ownerMint.Key, ownerBump)

	transfer := token.TransferChecked(
		tokenProgram,
		parsed.nested.Key,
		parsed.nestedMint.Key,
		parsed.destination.Key,
		parsed.owner.Key,
		nested.Amount,
		mint.Decimals,
	)
	if err := env.Invoke(ctx, transfer, seeds); err != nil {
		log.WithError(err).Warn("failed to transfer nested tokens")
		return err
	}

	closeAccount := token.CloseAccount(tokenProgram, parsed.nested.Key, parsed.wallet.Key, parsed.owner.Key)
	if err := env.Invoke(ctx, closeAccount, seeds); err != nil {
		log.WithError(err).Warn("failed to close nested account")
		return err
	}

	isMultisig := !parsed.wallet.IsSigner || ix.Command == token.AssociatedCommandRecoverMultisig

	log.WithFields(logrus.Fields{
		"amount":   nested.Amount,
		"multisig": isMultisig,
	}).Debug("nested associated account recovered")
	recordNestedAssociatedTokenAccountRecoveredEvent(ctx, ix.Command, tokenProgram, nested.Amount, isMultisig)

	return nil
}
