package token

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ExtensionType identifies a Token-2022 TLV extension.
//
// Reference: https://github.com/solana-program/token-2022/blob/main/program/src/extension/mod.rs
type ExtensionType uint16

const (
	ExtensionUninitialized ExtensionType = iota
	ExtensionTransferFeeConfig
	ExtensionTransferFeeAmount
	ExtensionMintCloseAuthority
	ExtensionConfidentialTransferMint
	ExtensionConfidentialTransferAccount
	ExtensionDefaultAccountState
	ExtensionImmutableOwner
	ExtensionMemoTransfer
	ExtensionNonTransferable
	ExtensionInterestBearingConfig
	ExtensionCpiGuard
	ExtensionPermanentDelegate
	ExtensionNonTransferableAccount
	ExtensionTransferHook
	ExtensionTransferHookAccount
	ExtensionConfidentialTransferFeeConfig
	ExtensionConfidentialTransferFeeAmount
	ExtensionMetadataPointer
	ExtensionTokenMetadata
	ExtensionGroupPointer
	ExtensionTokenGroup
	ExtensionGroupMemberPointer
	ExtensionTokenGroupMember
	ExtensionConfidentialMintBurn
	ExtensionScaledUiAmount
	ExtensionPausable
	ExtensionPausableAccount

	// ExtensionPlanned is reserved for an upcoming mint extension that needs no
	// account-side data.
	ExtensionPlanned
)

// MaxKnownExtension is the highest extension tag this package can size.
const MaxKnownExtension = ExtensionPlanned

const tlvHeaderSize = 4

var (
	// ErrUnsupportedExtension is returned when an extension cannot be sized.
	ErrUnsupportedExtension = errors.New("unsupported extension")

	// ErrInvalidMintExtensions is returned for mint TLV data that repeats an
	// extension or has an entry running past the end of the data.
	ErrInvalidMintExtensions = errors.New("invalid mint extensions")
)

// accountExtensionLengths holds the data length of every account-side
// extension that can be sized.
var accountExtensionLengths = map[ExtensionType]int{
	ExtensionTransferFeeAmount:             8,
	ExtensionImmutableOwner:                0,
	ExtensionMemoTransfer:                  1,
	ExtensionCpiGuard:                      1,
	ExtensionNonTransferableAccount:        0,
	ExtensionTransferHookAccount:           1,
	ExtensionConfidentialTransferFeeAmount: 64,
	ExtensionPausableAccount:               0,
}

// requiredAccountExtensions maps a mint extension to the account extension
// every token account for that mint must carry.
var requiredAccountExtensions = map[ExtensionType]ExtensionType{
	ExtensionTransferFeeConfig: ExtensionTransferFeeAmount,
	ExtensionNonTransferable:   ExtensionNonTransferableAccount,
	ExtensionTransferHook:      ExtensionTransferHookAccount,
	ExtensionPausable:          ExtensionPausableAccount,
}

// AccountExtensionLength returns the data length of an account-side extension.
func AccountExtensionLength(extension ExtensionType) (int, bool) {
	length, ok := accountExtensionLengths[extension]
	return length, ok
}

// RequiredInitAccountExtensions returns the account extensions implied by the
// given mint extensions, in mint order.
func RequiredInitAccountExtensions(mintExtensions []ExtensionType) []ExtensionType {
	var required []ExtensionType
	for _, extension := range mintExtensions {
		if accountExtension, ok := requiredAccountExtensions[extension]; ok {
			required = append(required, accountExtension)
		}
	}
	return required
}

// TryCalculateAccountLen returns the size of a token account carrying the
// given account extensions. Duplicates are counted once.
func TryCalculateAccountLen(extensions []ExtensionType) (int, error) {
	if len(extensions) == 0 {
		return AccountSize, nil
	}

	seen := make(map[ExtensionType]struct{}, len(extensions))
	size := AccountSize + 1
	for _, extension := range extensions {
		if _, ok := seen[extension]; ok {
			continue
		}
		seen[extension] = struct{}{}

		length, ok := AccountExtensionLength(extension)
		if !ok {
			return 0, errors.Wrapf(ErrUnsupportedExtension, "extension %d", extension)
		}
		size += tlvHeaderSize + length
	}

	if size == MultisigAccountSize {
		size++
	}

	return size, nil
}

// AccountLenForMint returns the size of an associated token account for a mint
// with the given extensions, which always includes ImmutableOwner.
func AccountLenForMint(mintExtensions []ExtensionType) (int, error) {
	required := RequiredInitAccountExtensions(mintExtensions)
	return TryCalculateAccountLen(append(required, ExtensionImmutableOwner))
}

// ParseMintExtensions returns the extension tags of a Token-2022 mint, in
// order. Base-layout mints have no extensions.
func ParseMintExtensions(data []byte) ([]ExtensionType, error) {
	if len(data) <= AccountTypeOffset+1 {
		return nil, nil
	}

	var extensions []ExtensionType
	seen := make(map[ExtensionType]struct{})

	cursor := AccountTypeOffset + 1
	for cursor+tlvHeaderSize <= len(data) {
		extension := ExtensionType(binary.LittleEndian.Uint16(data[cursor:]))
		length := int(binary.LittleEndian.Uint16(data[cursor+2:]))
		if extension == ExtensionUninitialized {
			break
		}

		if cursor+tlvHeaderSize+length > len(data) {
			return nil, errors.Wrapf(ErrInvalidMintExtensions, "extension %d overruns data", extension)
		}
		if _, ok := seen[extension]; ok {
			return nil, errors.Wrapf(ErrInvalidMintExtensions, "extension %d repeated", extension)
		}
		seen[extension] = struct{}{}

		extensions = append(extensions, extension)
		cursor += tlvHeaderSize + length
	}

	return extensions, nil
}

// Extension is a single TLV entry.
type Extension struct {
	Type ExtensionType
	Data []byte
}

// MarshalMintWithExtensions encodes a mint followed by the given extensions.
// Without extensions the base layout is returned unchanged.
func MarshalMintWithExtensions(m *Mint, extensions ...Extension) []byte {
	base := m.Marshal()
	if len(extensions) == 0 {
		return base
	}

	return appendExtensions(base, AccountTypeMint, extensions)
}

// appendExtensions pads base to the account length, writes the account type
// and then every TLV entry.
func appendExtensions(base []byte, accountType AccountType, extensions []Extension) []byte {
	size := AccountSize + 1
	for _, extension := range extensions {
		size += tlvHeaderSize + len(extension.Data)
	}

	b := make([]byte, size)
	copy(b, base)
	b[AccountTypeOffset] = byte(accountType)

	cursor := AccountTypeOffset + 1
	for _, extension := range extensions {
		binary.LittleEndian.PutUint16(b[cursor:], uint16(extension.Type))
		binary.LittleEndian.PutUint16(b[cursor+2:], uint16(len(extension.Data)))
		copy(b[cursor+tlvHeaderSize:], extension.Data)
		cursor += tlvHeaderSize + len(extension.Data)
	}

	return b
}

// WriteAccountExtensions lays out the account type and zeroed TLV entries for
// the given account extensions into data, which must already be sized with
// TryCalculateAccountLen or larger.
func WriteAccountExtensions(data []byte, extensions []ExtensionType) error {
	if len(extensions) == 0 {
		return nil
	}
	if len(data) <= AccountTypeOffset {
		return errors.Errorf("account data too small for extensions: %d", len(data))
	}

	data[AccountTypeOffset] = byte(AccountTypeAccount)

	seen := make(map[ExtensionType]struct{}, len(extensions))
	cursor := AccountTypeOffset + 1
	for _, extension := range extensions {
		if _, ok := seen[extension]; ok {
			continue
		}
		seen[extension] = struct{}{}

		length, ok := AccountExtensionLength(extension)
		if !ok {
			return errors.Wrapf(ErrUnsupportedExtension, "extension %d", extension)
		}
		if cursor+tlvHeaderSize+length > len(data) {
			return errors.Errorf("account data too small for extension %d", extension)
		}

		binary.LittleEndian.PutUint16(data[cursor:], uint16(extension))
		binary.LittleEndian.PutUint16(data[cursor+2:], uint16(length))
		cursor += tlvHeaderSize + length
	}

	return nil
}
