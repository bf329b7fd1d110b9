// Package ata implements the associated token account program.
//
// An associated token account is the token account at an address derived
// from a wallet, a token program and a mint. The program creates such
// accounts, optionally idempotently, and recovers tokens from associated
// accounts that were mistakenly created for another associated account.
package ata

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/solana-program/associated-token-account/pkg/metrics"
	"github.com/solana-program/associated-token-account/pkg/solana"
	"github.com/solana-program/associated-token-account/pkg/solana/runtime"
	"github.com/solana-program/associated-token-account/pkg/solana/token"
)

// Processor executes associated token account program instructions. It holds
// no state across invocations.
type Processor struct {
	log       *logrus.Entry
	conf      *conf
	programID ed25519.PublicKey
}

// Option configures a Processor.
type Option func(*Processor)

// WithProgramID sets the address the processor expects to run at. Defaults
// to token.AssociatedTokenAccountProgramKey.
func WithProgramID(programID ed25519.PublicKey) Option {
	return func(p *Processor) {
		p.programID = programID
	}
}

// WithConfigProvider sets where configuration is read from. Defaults to
// WithEnvConfigs.
func WithConfigProvider(configProvider ConfigProvider) Option {
	return func(p *Processor) {
		p.conf = configProvider()
	}
}

// NewProcessor returns a Processor, which implements runtime.Program.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		log:       logrus.StandardLogger().WithField("type", "ata/processor"),
		programID: token.AssociatedTokenAccountProgramKey,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.conf == nil {
		p.conf = WithEnvConfigs()()
	}

	return p
}

// Execute implements runtime.Program.Execute.
func (p *Processor) Execute(ctx context.Context, env runtime.Environment, accounts []*solana.AccountInfo, data []byte) error {
	if !bytes.Equal(env.ProgramID(), p.programID) {
		return errors.Wrapf(solana.InstructionErrorIncorrectProgramID, "running as %s", solana.Base58(env.ProgramID()))
	}

	start := time.Now()
	defer func() {
		metrics.RecordDuration(ctx, metricsInstructionDurationName, time.Since(start))
	}()

	ix, err := DecodeInstruction(data, p.conf.maxSaneAccountLength.Get(ctx))
	if err != nil {
		p.log.WithError(err).Info("invalid instruction data")
		return err
	}

	switch ix.Command {
	case token.AssociatedCommandCreate,
		token.AssociatedCommandCreateIdempotent,
		token.AssociatedCommandCreateAccountPrefunded:
		return p.Create(ctx, env, accounts, ix)
	case token.AssociatedCommandRecoverNested,
		token.AssociatedCommandRecoverMultisig:
		return p.Recover(ctx, env, accounts, ix)
	default:
		return errors.Wrapf(solana.InstructionErrorInvalidInstructionData, "unknown instruction %d", ix.Command)
	}
}
