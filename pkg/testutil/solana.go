package testutil

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
)

// GenerateSolanaKeypair returns a random keypair.
func GenerateSolanaKeypair(t *testing.T) ed25519.PrivateKey {
	_, private, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return private
}

// GenerateSolanaKeypairs returns n random keypairs and their public keys, in
// the same order.
func GenerateSolanaKeypairs(t *testing.T, n int) ([]ed25519.PrivateKey, []ed25519.PublicKey) {
	private := make([]ed25519.PrivateKey, n)
	public := make([]ed25519.PublicKey, n)
	for i := range private {
		private[i] = GenerateSolanaKeypair(t)
		public[i] = private[i].Public().(ed25519.PublicKey)
	}
	return private, public
}

// GenerateSolanaKeys returns n random public keys, for accounts that never
// sign.
func GenerateSolanaKeys(t *testing.T, n int) []ed25519.PublicKey {
	_, public := GenerateSolanaKeypairs(t, n)
	return public
}
