package ata

import (
	"bytes"
	"crypto/ed25519"
	"math"

	"github.com/solana-program/associated-token-account/pkg/solana"
)

// Derive returns the canonical address and bump of the associated account for
// wallet and mint under tokenProgram, as owned by program.
//
// Bumps are searched from 255 down to 0. solana.ErrBumpSeedNotFound is
// returned if none yields an off-curve address.
func Derive(program, wallet, tokenProgram, mint ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(program, wallet, tokenProgram, mint)
}

// Verify reports whether claimed is the associated account for wallet and
// mint at the given bump. Exactly one derivation is performed, and the result
// must be off-curve.
//
// Verify does not check that bump is canonical, see hasBetterBump.
func Verify(program, wallet, tokenProgram, mint ed25519.PublicKey, bump uint8, claimed ed25519.PublicKey) bool {
	address, err := solana.CreateProgramAddress(program, signerSeeds(wallet, tokenProgram, mint, bump)...)
	if err != nil {
		return false
	}
	return bytes.Equal(address, claimed)
}

// hasBetterBump reports whether a bump above hint yields an off-curve address,
// in which case hint is not the canonical bump.
func hasBetterBump(program, wallet, tokenProgram, mint ed25519.PublicKey, hint uint8) bool {
	for bump := math.MaxUint8; bump > int(hint); bump-- {
		address, err := solana.DeriveAddress(program, signerSeeds(wallet, tokenProgram, mint, uint8(bump))...)
		if err != nil {
			continue
		}
		if !solana.IsOnCurve(address) {
			return true
		}
	}
	return false
}

// signerSeeds returns the seeds that sign for an associated account.
func signerSeeds(wallet, tokenProgram, mint ed25519.PublicKey, bump uint8) [][]byte {
	return [][]byte{wallet, tokenProgram, mint, {bump}}
}
