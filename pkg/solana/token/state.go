package token

import (
	"crypto/ed25519"

	"github.com/solana-program/associated-token-account/pkg/solana/binary"
)

type AccountState byte

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
	AccountStateFrozen
)

// AccountType is the discriminator Token-2022 writes directly after the base
// layout of an extended mint or account.
type AccountType byte

const (
	AccountTypeUninitialized AccountType = iota
	AccountTypeMint
	AccountTypeAccount
)

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L125
const AccountSize = 165

// Reference: https://github.com/solana-labs/solana-program-library/blob/8944f428fe693c3a4226bf766a79be9c75e8e520/token/program/src/state.rs#L214
const MultisigAccountSize = 355

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L47
const MintSize = 82

// MaxSigners is the maximum number of signers a multisig account can hold.
const MaxSigners = 11

// AccountTypeOffset is where the AccountType byte lives for both extended
// mints and extended accounts. Mints are padded up to the account length so
// the two layouts share the offset.
const AccountTypeOffset = AccountSize

// AccountStateOffset is the offset of the state byte within an account.
const AccountStateOffset = 108

type Account struct {
	// The mint associated with this account
	Mint ed25519.PublicKey
	// The owner of this account.
	Owner ed25519.PublicKey
	// The amount of tokens this account holds.
	Amount uint64
	// If set, then the 'DelegatedAmount' represents the amount
	// authorized by the delegate.
	Delegate ed25519.PublicKey
	/// The account's state
	State AccountState
	// If set, this is a native token, and the value logs the rent-exempt reserve. An Account
	// is required to be rent-exempt, so the value is used by the Processor to ensure that wrapped
	// SOL accounts do not drop below this threshold.
	IsNative *uint64
	// The amount delegated
	DelegatedAmount uint64
	// Optional authority to close the account.
	CloseAuthority ed25519.PublicKey
}

// Marshal encodes the base layout of the account. Extension data, if any, is
// owned by the caller.
func (a *Account) Marshal() []byte {
	b := make([]byte, AccountSize)
	a.MarshalInto(b)
	return b
}

// MarshalInto writes the base layout into the first AccountSize bytes of b,
// leaving any trailing extension data untouched.
func (a *Account) MarshalInto(b []byte) {
	w := binary.NewWriter(b[:AccountSize])
	w.Key(a.Mint)
	w.Key(a.Owner)
	w.Uint64(a.Amount)
	w.OptionalKey(a.Delegate)
	w.Uint8(byte(a.State))
	w.OptionalUint64(a.IsNative)
	w.Uint64(a.DelegatedAmount)
	w.OptionalKey(a.CloseAuthority)
}

// Unmarshal decodes a base-layout account. Use UnpackAccount for data that
// may carry Token-2022 extensions.
func (a *Account) Unmarshal(b []byte) bool {
	if len(b) != AccountSize {
		return false
	}

	a.unmarshalBase(b)
	return true
}

func (a *Account) unmarshalBase(b []byte) {
	r := binary.NewReader(b)
	a.Mint = r.Key()
	a.Owner = r.Key()
	a.Amount = r.Uint64()
	a.Delegate = r.OptionalKey()
	a.State = AccountState(r.Uint8())
	a.IsNative = r.OptionalUint64()
	a.DelegatedAmount = r.Uint64()
	a.CloseAuthority = r.OptionalKey()
}

// ValidAccountData reports whether data holds an initialized token account
// for either token program.
//
// A length equal to MultisigAccountSize is always treated as a multisig, which
// is why Token-2022 pads accounts that would otherwise collide with it.
func ValidAccountData(data []byte) bool {
	if len(data) == AccountSize {
		return data[AccountStateOffset] != byte(AccountStateUninitialized)
	}

	if len(data) > AccountSize && len(data) != MultisigAccountSize {
		return data[AccountStateOffset] != byte(AccountStateUninitialized) &&
			data[AccountTypeOffset] == byte(AccountTypeAccount)
	}

	return false
}

// UnpackAccount decodes the base layout of a token account, ignoring any
// extensions. It returns false if the data is not a valid token account.
func UnpackAccount(data []byte) (*Account, bool) {
	if !ValidAccountData(data) {
		return nil, false
	}

	var a Account
	a.unmarshalBase(data[:AccountSize])
	return &a, true
}

type Mint struct {
	// Optional authority used to mint new tokens.
	MintAuthority ed25519.PublicKey
	// Total supply of tokens.
	Supply uint64
	// Number of base 10 digits to the right of the decimal place.
	Decimals byte
	IsInitialized bool
	// Optional authority to freeze token accounts.
	FreezeAuthority ed25519.PublicKey
}

func (m *Mint) Marshal() []byte {
	b := make([]byte, MintSize)

	w := binary.NewWriter(b)
	w.OptionalKey(m.MintAuthority)
	w.Uint64(m.Supply)
	w.Uint8(m.Decimals)
	w.Bool(m.IsInitialized)
	w.OptionalKey(m.FreezeAuthority)

	return b
}

// Unmarshal decodes the base layout of a mint. Data longer than MintSize is
// accepted so extended Token-2022 mints can be read.
func (m *Mint) Unmarshal(b []byte) bool {
	if len(b) < MintSize {
		return false
	}

	r := binary.NewReader(b)
	m.MintAuthority = r.OptionalKey()
	m.Supply = r.Uint64()
	m.Decimals = r.Uint8()
	m.IsInitialized = r.Bool()
	m.FreezeAuthority = r.OptionalKey()

	return true
}

type Multisig struct {
	// Number of signers required.
	M byte
	// Number of valid signers.
	N             byte
	IsInitialized bool
	Signers       []ed25519.PublicKey
}

func (m *Multisig) Marshal() []byte {
	b := make([]byte, MultisigAccountSize)

	w := binary.NewWriter(b)
	w.Uint8(m.M)
	w.Uint8(m.N)
	w.Bool(m.IsInitialized)
	for i := 0; i < MaxSigners; i++ {
		var signer ed25519.PublicKey
		if i < len(m.Signers) {
			signer = m.Signers[i]
		}
		w.Key(signer)
	}

	return b
}

// Unmarshal decodes a multisig and reports false for data of the wrong size,
// uninitialized state, or signer counts outside the valid range.
func (m *Multisig) Unmarshal(b []byte) bool {
	if len(b) != MultisigAccountSize {
		return false
	}

	r := binary.NewReader(b)
	m.M = r.Uint8()
	m.N = r.Uint8()
	m.IsInitialized = r.Bool()
	if !m.IsInitialized || m.N == 0 || m.N > MaxSigners || m.M == 0 || m.M > m.N {
		return false
	}

	m.Signers = make([]ed25519.PublicKey, m.N)
	for i := range m.Signers {
		m.Signers[i] = r.Key()
	}

	return true
}
