package system

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
)

var (
	// RentSysVar is the address of the rent sysvar account, whose data is a
	// marshalled Rent.
	//
	// Source: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/sysvar/rent.rs#L11
	RentSysVar = mustDecodeKey("SysvarRent111111111111111111111111111111111")

	// SysvarOwnerKey owns every sysvar account.
	SysvarOwnerKey = mustDecodeKey("Sysvar1111111111111111111111111111111111111")
)

func mustDecodeKey(encoded string) ed25519.PublicKey {
	key, err := base58.Decode(encoded)
	if err != nil {
		panic(err)
	}
	return key
}
