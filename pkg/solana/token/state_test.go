package token

import (
	"encoding/hex"
	"testing"

	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A mainnet token account with no delegate or close authority.
const mainnetAccount = "118a08c9d4cc46c576282e0daf050bbdb04f03313e35e5db3f3def69fa1eeec42b15a9cd4bef2cd809e464570d2a6cbd9bcc64e32ea4ebbcf748757bbb3dd5bd000084e2506ce67c000000000000000000000000000000000000000000000000000000000000000000000000010000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000"

func TestAccount_Mainnet(t *testing.T) {
	data, err := hex.DecodeString(mainnetAccount)
	require.NoError(t, err)
	mint, err := base58.Decode("2BU1Xgyzqixhjaq9Pa5cNsaa1gSejLeNtDaDRv29qoZm")
	require.NoError(t, err)

	var a Account
	require.True(t, a.Unmarshal(data))
	assert.EqualValues(t, mint, a.Mint)
	assert.EqualValues(t, 9_000_000_000_000_000_000, a.Amount)
	assert.Equal(t, AccountStateInitialized, a.State)
	assert.Nil(t, a.Delegate)
	assert.Nil(t, a.IsNative)
	assert.Nil(t, a.CloseAuthority)

	assert.Equal(t, data, a.Marshal())
}

func TestAccount_RoundTrip(t *testing.T) {
	keys := generateKeys(t, 4)
	rentReserve := uint64(2039280)

	for _, expected := range []Account{
		{Mint: keys[0], Owner: keys[1], State: AccountStateInitialized},
		{
			Mint:            keys[0],
			Owner:           keys[1],
			Amount:          10,
			Delegate:        keys[2],
			State:           AccountStateFrozen,
			IsNative:        &rentReserve,
			DelegatedAmount: 5,
			CloseAuthority:  keys[3],
		},
	} {
		var actual Account
		require.True(t, actual.Unmarshal(expected.Marshal()))
		assert.Equal(t, expected, actual)
	}

	var a Account
	assert.False(t, a.Unmarshal(make([]byte, AccountSize+1)))
}

func TestAccount_MarshalInto(t *testing.T) {
	keys := generateKeys(t, 3)

	data := make([]byte, AccountSize+5)
	for i := range data {
		data[i] = 0xff
	}

	// Unset options are cleared, trailing extension bytes are kept.
	a := Account{Mint: keys[0], Owner: keys[1], State: AccountStateInitialized}
	a.MarshalInto(data)
	assert.Equal(t, a.Marshal(), data[:AccountSize])
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff, 0xff}, data[AccountSize:])
}

func TestValidAccountData(t *testing.T) {
	keys := generateKeys(t, 2)

	account := Account{
		Mint:  keys[0],
		Owner: keys[1],
		State: AccountStateInitialized,
	}
	base := account.Marshal()
	assert.True(t, ValidAccountData(base))

	unpacked, ok := UnpackAccount(base)
	require.True(t, ok)
	assert.Equal(t, keys[0], unpacked.Mint)
	assert.Equal(t, keys[1], unpacked.Owner)

	uninitialized := append([]byte{}, base...)
	uninitialized[AccountStateOffset] = byte(AccountStateUninitialized)
	assert.False(t, ValidAccountData(uninitialized))
	_, ok = UnpackAccount(uninitialized)
	assert.False(t, ok)

	assert.False(t, ValidAccountData(nil))
	assert.False(t, ValidAccountData(base[:AccountSize-1]))

	extended := make([]byte, 170)
	copy(extended, base)
	assert.False(t, ValidAccountData(extended))
	extended[AccountTypeOffset] = byte(AccountTypeAccount)
	assert.True(t, ValidAccountData(extended))
	extended[AccountTypeOffset] = byte(AccountTypeMint)
	assert.False(t, ValidAccountData(extended))

	unpacked, ok = UnpackAccount(append(base, byte(AccountTypeAccount), 7, 0, 0, 0))
	require.True(t, ok)
	assert.Equal(t, keys[1], unpacked.Owner)

	// Anything the size of a multisig is never a token account.
	collision := make([]byte, MultisigAccountSize)
	copy(collision, base)
	collision[AccountTypeOffset] = byte(AccountTypeAccount)
	assert.False(t, ValidAccountData(collision))
}

func TestMint_RoundTrip(t *testing.T) {
	keys := generateKeys(t, 2)

	expected := Mint{
		MintAuthority:   keys[0],
		Supply:          1_000_000,
		Decimals:        6,
		IsInitialized:   true,
		FreezeAuthority: keys[1],
	}

	b := expected.Marshal()
	require.Len(t, b, MintSize)
	assert.EqualValues(t, 6, b[44])
	assert.EqualValues(t, 1, b[45])

	var actual Mint
	require.True(t, actual.Unmarshal(b))
	assert.Equal(t, expected, actual)

	noAuthorities := Mint{Decimals: 9, IsInitialized: true}
	actual = Mint{}
	require.True(t, actual.Unmarshal(noAuthorities.Marshal()))
	assert.Equal(t, noAuthorities, actual)

	assert.False(t, actual.Unmarshal(b[:MintSize-1]))
}

func TestMultisig_RoundTrip(t *testing.T) {
	keys := generateKeys(t, 3)

	expected := Multisig{
		M:             2,
		N:             3,
		IsInitialized: true,
		Signers:       keys,
	}

	b := expected.Marshal()
	require.Len(t, b, MultisigAccountSize)

	var actual Multisig
	require.True(t, actual.Unmarshal(b))
	assert.Equal(t, expected, actual)

	for _, invalid := range []Multisig{
		{M: 2, N: 3, Signers: keys},
		{M: 0, N: 3, IsInitialized: true, Signers: keys},
		{M: 4, N: 3, IsInitialized: true, Signers: keys},
		{M: 1, N: 0, IsInitialized: true},
		{M: 1, N: MaxSigners + 1, IsInitialized: true},
	} {
		assert.False(t, actual.Unmarshal(invalid.Marshal()))
	}

	assert.False(t, actual.Unmarshal(b[:AccountSize]))
}
