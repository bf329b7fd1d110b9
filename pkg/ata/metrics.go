package ata

import (
	"context"
	"crypto/ed25519"

	"github.com/solana-program/associated-token-account/pkg/metrics"
	"github.com/solana-program/associated-token-account/pkg/solana"
	"github.com/solana-program/associated-token-account/pkg/solana/token"
)

const (
	metricsStructName = "ata.processor"

	associatedTokenAccountCreatedEventName         = "AssociatedTokenAccountCreated"
	nestedAssociatedTokenAccountRecoveredEventName = "NestedAssociatedTokenAccountRecovered"

	metricsSizeFallbackCountName   = "AssociatedTokenAccountSizeFallback"
	metricsInstructionDurationName = "AssociatedTokenAccountInstructionDuration"
)

// sizeSource is where the length of a created account came from.
type sizeSource string

const (
	sizeSourceHint         sizeSource = "hint"
	sizeSourceCalculator   sizeSource = "calculator"
	sizeSourceTokenProgram sizeSource = "token_program"
)

// fundingPath is the set of system program calls used to create an account.
type fundingPath string

const (
	fundingPathCreateAccount          fundingPath = "create_account"
	fundingPathCreateAccountPrefunded fundingPath = "create_account_prefunded"
	fundingPathTransferAllocateAssign fundingPath = "transfer_allocate_assign"
)

func commandName(command token.AssociatedCommand) string {
	switch command {
	case token.AssociatedCommandCreate:
		return "Create"
	case token.AssociatedCommandCreateIdempotent:
		return "CreateIdempotent"
	case token.AssociatedCommandRecoverNested:
		return "RecoverNested"
	case token.AssociatedCommandRecoverMultisig:
		return "RecoverMultisig"
	case token.AssociatedCommandCreateAccountPrefunded:
		return "CreateAccountPrefunded"
	default:
		return "Unknown"
	}
}

func recordAssociatedTokenAccountCreatedEvent(ctx context.Context, command token.AssociatedCommand, tokenProgram ed25519.PublicKey, funding fundingPath, source sizeSource, space int) {
	metrics.RecordEvent(ctx, associatedTokenAccountCreatedEventName, map[string]interface{}{
		"instruction":   commandName(command),
		"token_program": solana.Base58(tokenProgram),
		"funding_path":  string(funding),
		"size_source":   string(source),
		"space":         space,
	})
}

func recordNestedAssociatedTokenAccountRecoveredEvent(ctx context.Context, command token.AssociatedCommand, tokenProgram ed25519.PublicKey, amount uint64, isMultisig bool) {
	metrics.RecordEvent(ctx, nestedAssociatedTokenAccountRecoveredEventName, map[string]interface{}{
		"instruction":   commandName(command),
		"token_program": solana.Base58(tokenProgram),
		"amount":        amount,
		"multisig":      isMultisig,
	})
}
