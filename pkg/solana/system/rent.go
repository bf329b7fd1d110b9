package system

import (
	"math"

	"github.com/pkg/errors"

	"github.com/solana-program/associated-token-account/pkg/solana/binary"
)

// RentSize is the serialized size of the rent sysvar.
const RentSize = 8 + 8 + 1

// AccountStorageOverhead is the number of bytes charged for an account on
// top of its data.
//
// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/program/src/rent.rs#L44
const AccountStorageOverhead = 128

const (
	DefaultLamportsPerByteYear = 1_000_000_000 / 100 * 365 / (1024 * 1024)
	DefaultExemptionThreshold  = 2.0
	DefaultBurnPercent         = 50
)

var ErrInvalidRentSize = errors.New("invalid rent sysvar size")

// Rent mirrors the rent sysvar.
//
// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/program/src/rent.rs#L13
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
	BurnPercent         uint8
}

// DefaultRent returns the rent parameters used by mainnet.
func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionThreshold:  DefaultExemptionThreshold,
		BurnPercent:         DefaultBurnPercent,
	}
}

// MinimumBalance returns the lamports an account holding dataLen bytes needs
// to be rent exempt.
func (r Rent) MinimumBalance(dataLen uint64) uint64 {
	bytes := AccountStorageOverhead + dataLen
	return uint64(float64(bytes*r.LamportsPerByteYear) * r.ExemptionThreshold)
}

// IsExempt reports whether balance covers the minimum for dataLen bytes.
func (r Rent) IsExempt(balance, dataLen uint64) bool {
	return balance >= r.MinimumBalance(dataLen)
}

func (r Rent) Marshal() []byte {
	b := make([]byte, RentSize)

	w := binary.NewWriter(b)
	w.Uint64(r.LamportsPerByteYear)
	w.Uint64(math.Float64bits(r.ExemptionThreshold))
	w.Uint8(r.BurnPercent)

	return b
}

// Unmarshal decodes the sysvar. Trailing bytes are ignored.
func (r *Rent) Unmarshal(data []byte) error {
	if len(data) < RentSize {
		return ErrInvalidRentSize
	}

	rd := binary.NewReader(data)
	r.LamportsPerByteYear = rd.Uint64()
	r.ExemptionThreshold = math.Float64frombits(rd.Uint64())
	r.BurnPercent = rd.Uint8()

	return nil
}
