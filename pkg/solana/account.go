package solana

import (
	"bytes"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
)

// AccountInfo is a view over an account as seen by an executing program
// (not to be confused with a TokenAccount).
//
// Programs receive AccountInfo values in the positional order of the
// instruction's account list. Mutations made through the view are applied to
// the runtime's working set for the duration of the transaction.
type AccountInfo struct {
	Key        ed25519.PublicKey
	Owner      ed25519.PublicKey
	Lamports   uint64
	Data       []byte
	Executable bool

	IsSigner   bool
	IsWritable bool
}

// IsOwnedBy reports whether the account is owned by the given program.
func (a *AccountInfo) IsOwnedBy(program ed25519.PublicKey) bool {
	return bytes.Equal(a.Owner, program)
}

// Is reports whether the account lives at the given address.
func (a *AccountInfo) Is(key ed25519.PublicKey) bool {
	return bytes.Equal(a.Key, key)
}

// Clone returns a deep copy of the account.
func (a *AccountInfo) Clone() *AccountInfo {
	cloned := *a
	cloned.Key = append(ed25519.PublicKey(nil), a.Key...)
	cloned.Owner = append(ed25519.PublicKey(nil), a.Owner...)
	if a.Data != nil {
		cloned.Data = append([]byte{}, a.Data...)
	}
	return &cloned
}

// Base58 returns the base58 encoding of a key, used for logging and map keys.
func Base58(key ed25519.PublicKey) string {
	return base58.Encode(key)
}
