package ata

import (
	"context"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/solana-program/associated-token-account/pkg/metrics"
	"github.com/solana-program/associated-token-account/pkg/solana"
	"github.com/solana-program/associated-token-account/pkg/solana/runtime"
	"github.com/solana-program/associated-token-account/pkg/solana/token"
)

const (
	tlvHeaderSize = 4

	// extendedAccountLen is the length of an associated account under a
	// token program with extensions: the base layout, the account type and an
	// ImmutableOwner entry.
	extendedAccountLen = token.AccountSize + 1 + tlvHeaderSize
)

// accountLenByMintExtension holds the account-side bytes each mint extension
// implies. Mint extensions up to token.MaxKnownExtension that are missing
// from the table require nothing of the account.
var accountLenByMintExtension = map[token.ExtensionType]int{
	token.ExtensionTransferFeeConfig: tlvHeaderSize + 8, // TransferFeeAmount
	token.ExtensionNonTransferable:   tlvHeaderSize,     // NonTransferableAccount
	token.ExtensionTransferHook:      tlvHeaderSize + 1, // TransferHookAccount
	token.ExtensionPausable:          tlvHeaderSize,     // PausableAccount
}

// AccountLen returns the length of an associated account for a mint owned by
// tokenProgram, given the mint's raw data.
//
// The legacy token program always yields token.AccountSize. Otherwise the
// account carries ImmutableOwner plus whatever the mint's extensions require,
// which is only computed for Token-2022 mints.
// token.ErrUnsupportedExtension is returned for extensions that can't be sized
// here, and token.ErrInvalidMintExtensions for malformed mint TLV data.
func AccountLen(tokenProgram ed25519.PublicKey, mintData []byte) (int, error) {
	if token.IsLegacyProgram(tokenProgram) {
		return token.AccountSize, nil
	}

	if len(mintData) <= token.MintSize {
		return extendedAccountLen, nil
	}

	// Only Token-2022 extension layouts are known here.
	if !token.Is2022Program(tokenProgram) {
		return 0, errors.Wrapf(token.ErrUnsupportedExtension, "token program %s", solana.Base58(tokenProgram))
	}

	extensions, err := token.ParseMintExtensions(mintData)
	if err != nil {
		return 0, err
	}

	size := extendedAccountLen
	for _, extension := range extensions {
		if extension > token.MaxKnownExtension {
			return 0, errors.Wrapf(token.ErrUnsupportedExtension, "mint extension %d", extension)
		}
		size += accountLenByMintExtension[extension]
	}

	return size, nil
}

// accountLen resolves the length of the account to create. The length hint
// wins if present, then the inline calculator, and finally the token program
// itself through GetAccountDataSize.
func (p *Processor) accountLen(ctx context.Context, env runtime.Environment, tokenProgram, mint *solana.AccountInfo, hint *uint16) (int, sizeSource, error) {
	if hint != nil {
		return int(*hint), sizeSourceHint, nil
	}

	size, err := AccountLen(tokenProgram.Key, mint.Data)
	switch errors.Cause(err) {
	case nil:
		return size, sizeSourceCalculator, nil
	case token.ErrUnsupportedExtension:
	case token.ErrInvalidMintExtensions:
		return 0, "", errors.Wrap(solana.InstructionErrorInvalidAccountData, err.Error())
	default:
		return 0, "", err
	}

	p.log.WithError(err).WithField("mint", solana.Base58(mint.Key)).Debug("falling back to token program for account size")
	metrics.RecordCount(ctx, metricsSizeFallbackCountName, 1)

	ix := token.GetAccountDataSize(tokenProgram.Key, mint.Key, token.ExtensionImmutableOwner)
	if err := env.Invoke(ctx, ix); err != nil {
		return 0, "", err
	}

	_, data := env.ReturnData()
	if len(data) != 8 {
		return 0, "", errors.Wrapf(solana.InstructionErrorInvalidAccountData, "unexpected account size return data length: %d", len(data))
	}

	return int(binary.LittleEndian.Uint64(data)), sizeSourceTokenProgram, nil
}
