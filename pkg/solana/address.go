package solana

import (
	"crypto/ed25519"
	"crypto/sha256"

	"github.com/jdgcs/ed25519/edwards25519"
	"github.com/pkg/errors"
)

const (
	maxSeeds      = 16
	maxSeedLength = 32

	pdaMarker = "ProgramDerivedAddress"
)

var (
	ErrTooManySeeds          = errors.New("too many seeds")
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")

	// ErrInvalidPublicKey is returned when seeds derive an address that lies
	// on the curve, and so could have a private key.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrBumpSeedNotFound is returned when no bump in [0, 255] yields an
	// off-curve address.
	ErrBumpSeedNotFound = errors.New("unable to find a viable program address bump seed")
)

// Swapped out in tests to force on-curve results.
var programHashCtor = sha256.New

// IsOnCurve reports whether b decompresses to a valid ed25519 point.
//
// Point decompression is not exported by golang.org/x/crypto, hence the jdgcs
// fork.
func IsOnCurve(b []byte) bool {
	if len(b) != ed25519.PublicKeySize {
		return false
	}

	var compressed [32]byte
	copy(compressed[:], b)

	var point edwards25519.ExtendedGroupElement
	return point.FromBytes(&compressed)
}

// DeriveAddress returns sha256(seeds || program || "ProgramDerivedAddress")
// without checking whether the result lies on the curve.
func DeriveAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	if len(seeds) > maxSeeds {
		return nil, ErrTooManySeeds
	}
	for _, seed := range seeds {
		if len(seed) > maxSeedLength {
			return nil, ErrMaxSeedLengthExceeded
		}
	}

	h := programHashCtor()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write(program)
	h.Write([]byte(pdaMarker))

	return h.Sum(nil), nil
}

// CreateProgramAddress derives the program address for seeds, returning
// ErrInvalidPublicKey if it lies on the curve.
func CreateProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	address, err := DeriveAddress(program, seeds...)
	if err != nil {
		return nil, err
	}
	if IsOnCurve(address) {
		return nil, ErrInvalidPublicKey
	}
	return address, nil
}

// FindProgramAddressAndBump searches bumps from 255 down to 0 and returns the
// first off-curve address along with its bump, the canonical one.
func FindProgramAddressAndBump(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, uint8, error) {
	bump := []byte{0}
	withBump := append(append(make([][]byte, 0, len(seeds)+1), seeds...), bump)

	for b := 255; b >= 0; b-- {
		bump[0] = byte(b)

		address, err := CreateProgramAddress(program, withBump...)
		switch err {
		case nil:
			return address, bump[0], nil
		case ErrInvalidPublicKey:
		default:
			return nil, 0, err
		}
	}

	return nil, 0, ErrBumpSeedNotFound
}

// FindProgramAddress is FindProgramAddressAndBump without the bump.
func FindProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	address, _, err := FindProgramAddressAndBump(program, seeds...)
	return address, err
}
