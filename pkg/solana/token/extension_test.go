package token

import (
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryCalculateAccountLen(t *testing.T) {
	for _, tc := range []struct {
		extensions []ExtensionType
		expected   int
	}{
		{nil, 165},
		{[]ExtensionType{ExtensionImmutableOwner}, 170},
		{[]ExtensionType{ExtensionImmutableOwner, ExtensionImmutableOwner}, 170},
		{[]ExtensionType{ExtensionImmutableOwner, ExtensionTransferFeeAmount}, 182},
		{[]ExtensionType{ExtensionImmutableOwner, ExtensionTransferHookAccount}, 175},
		{[]ExtensionType{ExtensionImmutableOwner, ExtensionNonTransferableAccount, ExtensionPausableAccount}, 178},
		{
			[]ExtensionType{
				ExtensionImmutableOwner,
				ExtensionTransferFeeAmount,
				ExtensionNonTransferableAccount,
				ExtensionTransferHookAccount,
				ExtensionPausableAccount,
			},
			195,
		},
	} {
		actual, err := TryCalculateAccountLen(tc.extensions)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, actual, "%v", tc.extensions)
	}

	_, err := TryCalculateAccountLen([]ExtensionType{ExtensionTransferFeeConfig})
	assert.Equal(t, ErrUnsupportedExtension, errors.Cause(err))
}

func TestTryCalculateAccountLen_MultisigCollision(t *testing.T) {
	// No sizable extension set lands on the multisig size, so force one.
	saved := accountExtensionLengths[ExtensionConfidentialTransferFeeAmount]
	defer func() {
		accountExtensionLengths[ExtensionConfidentialTransferFeeAmount] = saved
	}()

	// 165 + 1 + 4 + 185 = 355
	accountExtensionLengths[ExtensionConfidentialTransferFeeAmount] = 185
	actual, err := TryCalculateAccountLen([]ExtensionType{ExtensionConfidentialTransferFeeAmount})
	require.NoError(t, err)
	assert.Equal(t, MultisigAccountSize+1, actual)
}

func TestRequiredInitAccountExtensions(t *testing.T) {
	assert.Empty(t, RequiredInitAccountExtensions(nil))
	assert.Equal(
		t,
		[]ExtensionType{ExtensionTransferFeeAmount, ExtensionNonTransferableAccount, ExtensionTransferHookAccount, ExtensionPausableAccount},
		RequiredInitAccountExtensions([]ExtensionType{
			ExtensionTransferFeeConfig,
			ExtensionMintCloseAuthority,
			ExtensionNonTransferable,
			ExtensionTransferHook,
			ExtensionMetadataPointer,
			ExtensionPausable,
		}),
	)

	for extension := ExtensionUninitialized; extension <= MaxKnownExtension; extension++ {
		switch extension {
		case ExtensionTransferFeeConfig, ExtensionNonTransferable, ExtensionTransferHook, ExtensionPausable:
			assert.Len(t, RequiredInitAccountExtensions([]ExtensionType{extension}), 1)
		default:
			assert.Empty(t, RequiredInitAccountExtensions([]ExtensionType{extension}))
		}
	}
}

func TestAccountLenForMint(t *testing.T) {
	actual, err := AccountLenForMint(nil)
	require.NoError(t, err)
	assert.Equal(t, 170, actual)

	actual, err = AccountLenForMint([]ExtensionType{ExtensionTransferFeeConfig, ExtensionTransferHook})
	require.NoError(t, err)
	assert.Equal(t, 170+12+5, actual)
}

func TestParseMintExtensions(t *testing.T) {
	mint := &Mint{Decimals: 6, IsInitialized: true}

	extensions, err := ParseMintExtensions(mint.Marshal())
	require.NoError(t, err)
	assert.Empty(t, extensions)

	data := MarshalMintWithExtensions(
		mint,
		Extension{Type: ExtensionTransferFeeConfig, Data: make([]byte, 108)},
		Extension{Type: ExtensionMintCloseAuthority, Data: make([]byte, 32)},
		Extension{Type: ExtensionPausable, Data: make([]byte, 33)},
	)
	assert.EqualValues(t, AccountTypeMint, data[AccountTypeOffset])

	var decoded Mint
	require.True(t, decoded.Unmarshal(data))
	assert.Equal(t, *mint, decoded)

	extensions, err = ParseMintExtensions(data)
	require.NoError(t, err)
	assert.Equal(t, []ExtensionType{ExtensionTransferFeeConfig, ExtensionMintCloseAuthority, ExtensionPausable}, extensions)

	// Trailing zero padding terminates the list.
	padded := append(append([]byte{}, data...), make([]byte, 8)...)
	extensions, err = ParseMintExtensions(padded)
	require.NoError(t, err)
	assert.Len(t, extensions, 3)
}

func TestParseMintExtensions_Invalid(t *testing.T) {
	mint := &Mint{Decimals: 6, IsInitialized: true}

	repeated := MarshalMintWithExtensions(
		mint,
		Extension{Type: ExtensionNonTransferable},
		Extension{Type: ExtensionNonTransferable},
	)
	_, err := ParseMintExtensions(repeated)
	assert.Equal(t, ErrInvalidMintExtensions, errors.Cause(err))

	overrun := MarshalMintWithExtensions(mint, Extension{Type: ExtensionMintCloseAuthority, Data: make([]byte, 32)})
	binary.LittleEndian.PutUint16(overrun[AccountTypeOffset+3:], 33)
	_, err = ParseMintExtensions(overrun)
	assert.Equal(t, ErrInvalidMintExtensions, errors.Cause(err))
}

func TestWriteAccountExtensions(t *testing.T) {
	extensions := []ExtensionType{ExtensionTransferFeeAmount, ExtensionImmutableOwner}

	size, err := TryCalculateAccountLen(extensions)
	require.NoError(t, err)

	data := make([]byte, size)
	require.NoError(t, WriteAccountExtensions(data, extensions))
	assert.EqualValues(t, AccountTypeAccount, data[AccountTypeOffset])
	assert.EqualValues(t, ExtensionTransferFeeAmount, binary.LittleEndian.Uint16(data[166:]))
	assert.EqualValues(t, 8, binary.LittleEndian.Uint16(data[168:]))
	assert.EqualValues(t, ExtensionImmutableOwner, binary.LittleEndian.Uint16(data[178:]))
	assert.EqualValues(t, 0, binary.LittleEndian.Uint16(data[180:]))

	assert.Error(t, WriteAccountExtensions(data[:size-1], extensions))
	assert.Error(t, WriteAccountExtensions(make([]byte, AccountSize), extensions))
	assert.NoError(t, WriteAccountExtensions(make([]byte, AccountSize), nil))
}
