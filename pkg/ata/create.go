package ata

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/solana-program/associated-token-account/pkg/metrics"
	"github.com/solana-program/associated-token-account/pkg/solana"
	"github.com/solana-program/associated-token-account/pkg/solana/runtime"
	"github.com/solana-program/associated-token-account/pkg/solana/system"
	"github.com/solana-program/associated-token-account/pkg/solana/token"
)

// Create handles Create, CreateIdempotent and CreateAccountPrefunded.
//
// Accounts:
//
//	0. [writable, signer] payer
//	1. [writable] associated token account
//	2. [] wallet
//	3. [] mint
//	4. [] system program
//	5. [] token program
//	6. [] rent sysvar, optional
func (p *Processor) Create(ctx context.Context, env runtime.Environment, accounts []*solana.AccountInfo, ix *Instruction) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, commandName(ix.Command))
	defer tracer.End()

	err := p.create(ctx, env, accounts, ix)
	if err != nil {
		tracer.OnError(err)
	}
	return err
}

func (p *Processor) create(ctx context.Context, env runtime.Environment, accounts []*solana.AccountInfo, ix *Instruction) error {
	parsed, err := parseCreateAccounts(accounts)
	if err != nil {
		return err
	}

	log := p.log.WithFields(logrus.Fields{
		"method":        commandName(ix.Command),
		"wallet":        solana.Base58(parsed.wallet.Key),
		"mint":          solana.Base58(parsed.mint.Key),
		"token_program": solana.Base58(parsed.tokenProgram.Key),
		"ata":           solana.Base58(parsed.associated.Key),
	})

	program := env.ProgramID()
	associated := parsed.associated

	if associated.IsOwnedBy(parsed.tokenProgram.Key) {
		if ix.Command != token.AssociatedCommandCreateIdempotent {
			log.Info("associated account already exists")
			return errors.Wrap(solana.InstructionErrorIllegalOwner, "associated account already exists")
		}

		if err := validateExistingAccount(program, parsed); err != nil {
			log.WithError(err).Info("existing associated account is invalid")
			return err
		}

		log.Debug("associated account already exists")
		return nil
	}

	if !associated.IsOwnedBy(system.ProgramKey[:]) {
		log.WithField("owner", solana.Base58(associated.Owner)).Info("associated account is owned by another program")
		return errors.Wrapf(solana.InstructionErrorIllegalOwner, "associated account is owned by %s", solana.Base58(associated.Owner))
	}

	bump, err := validateCreateAddress(program, parsed, ix.Bump)
	if err != nil {
		log.WithError(err).Info("associated account address is invalid")
		return err
	}

	space, source, err := p.accountLen(ctx, env, parsed.tokenProgram, parsed.mint, ix.AccountLen)
	if err != nil {
		log.WithError(err).Warn("failed to resolve account size")
		return err
	}

	rent := env.Rent()
	if parsed.rentSysvar != nil {
		if err := rent.Unmarshal(parsed.rentSysvar.Data); err != nil {
			log.WithError(err).Info("invalid rent sysvar")
			return errors.Wrap(solana.InstructionErrorInvalidArgument, err.Error())
		}
	}

	seeds := signerSeeds(parsed.wallet.Key, parsed.tokenProgram.Key, parsed.mint.Key, bump)

	funding, err := p.createPDAAccount(ctx, env, parsed, rent, uint64(space), seeds)
	if err != nil {
		log.WithError(err).Warn("failed to create associated account")
		return err
	}

	if !token.IsLegacyProgram(parsed.tokenProgram.Key) {
		if err := env.Invoke(ctx, token.InitializeImmutableOwner(parsed.tokenProgram.Key, associated.Key)); err != nil {
			log.WithError(err).Warn("failed to initialize immutable owner")
			return err
		}
	}

	initialize := token.InitializeAccount3(parsed.tokenProgram.Key, associated.Key, parsed.mint.Key, parsed.wallet.Key)
	if err := env.Invoke(ctx, initialize); err != nil {
		log.WithError(err).Warn("failed to initialize associated account")
		return err
	}

	log.WithFields(logrus.Fields{
		"space":        space,
		"size_source":  source,
		"funding_path": funding,
	}).Debug("associated account created")
	recordAssociatedTokenAccountCreatedEvent(ctx, ix.Command, parsed.tokenProgram.Key, funding, source, space)

	return nil
}

// createPDAAccount funds, allocates and assigns the associated account to the
// token program, signing for it with seeds.
//
// An empty address is created outright. An address that already holds
// lamports, for example from a transfer earlier in the transaction, is only
// topped up to the minimum balance, and allocated or assigned only where it
// isn't already.
func (p *Processor) createPDAAccount(ctx context.Context, env runtime.Environment, accounts *createAccounts, rent system.Rent, space uint64, seeds [][]byte) (fundingPath, error) {
	payer, associated, owner := accounts.payer.Key, accounts.associated.Key, accounts.tokenProgram.Key

	// A zero rent rate must still leave the account with a balance.
	required := rent.MinimumBalance(space)
	if required == 0 {
		required = 1
	}
	current := accounts.associated.Lamports

	if current == 0 {
		ix := system.CreateAccount(payer, associated, owner, required, space)
		return fundingPathCreateAccount, env.Invoke(ctx, ix, seeds)
	}

	var shortfall uint64
	if required > current {
		shortfall = required - current
	}

	if p.conf.enableCreatePrefunded.Get(ctx) {
		ix := system.CreateAccountPrefunded(payer, associated, owner, shortfall, space)
		return fundingPathCreateAccountPrefunded, env.Invoke(ctx, ix, seeds)
	}

	if shortfall > 0 {
		if err := env.Invoke(ctx, system.Transfer(payer, associated, shortfall)); err != nil {
			return fundingPathTransferAllocateAssign, err
		}
	}
	if uint64(len(accounts.associated.Data)) != space {
		if err := env.Invoke(ctx, system.Allocate(associated, space), seeds); err != nil {
			return fundingPathTransferAllocateAssign, err
		}
	}
	if !accounts.associated.IsOwnedBy(owner) {
		if err := env.Invoke(ctx, system.Assign(associated, owner), seeds); err != nil {
			return fundingPathTransferAllocateAssign, err
		}
	}
	return fundingPathTransferAllocateAssign, nil
}
