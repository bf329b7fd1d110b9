package token

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/solana-program/associated-token-account/pkg/cache"
	"github.com/solana-program/associated-token-account/pkg/solana"
	"github.com/solana-program/associated-token-account/pkg/solana/system"
)

// AssociatedTokenAccountProgramKey  is the address of the associated token account program that should be used.
//
// Current key: ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL
var AssociatedTokenAccountProgramKey = ed25519.PublicKey{140, 151, 37, 143, 78, 36, 137, 241, 187, 61, 16, 41, 20, 142, 13, 131, 11, 90, 19, 153, 218, 255, 16, 132, 4, 142, 123, 216, 219, 233, 248, 89}

// AssociatedCommand is the leading tag byte of an associated token account
// program instruction. Empty instruction data is treated as
// AssociatedCommandCreate.
type AssociatedCommand byte

const (
	AssociatedCommandCreate AssociatedCommand = iota
	AssociatedCommandCreateIdempotent
	AssociatedCommandRecoverNested
	AssociatedCommandRecoverMultisig
	AssociatedCommandCreateAccountPrefunded
)

// GetAssociatedAccount returns the associated account address for an SPL token.
//
// Reference: https://spl.solana.com/associated-token-account#finding-the-associated-token-account-address
func GetAssociatedAccount(wallet, mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	addr, _, err := GetAssociatedAccountWithProgram(wallet, mint, ProgramKey)
	return addr, err
}

// GetAssociatedAccountWithProgram returns the associated account address and
// its canonical bump for a mint owned by tokenProgram.
func GetAssociatedAccountWithProgram(wallet, mint, tokenProgram ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		AssociatedTokenAccountProgramKey,
		wallet,
		tokenProgram,
		mint,
	)
}

type createOptions struct {
	tokenProgram ed25519.PublicKey
	withBump     bool
	bump         uint8
	accountLen   *uint16
	withoutRent  bool
}

// CreateOption configures the create instruction builders.
type CreateOption func(*createOptions)

// WithTokenProgram sets the token program owning the mint. Defaults to the
// legacy token program.
func WithTokenProgram(program ed25519.PublicKey) CreateOption {
	return func(o *createOptions) {
		o.tokenProgram = program
	}
}

// WithBumpHint includes the canonical bump in the instruction data, which lets
// the program skip the bump search.
func WithBumpHint() CreateOption {
	return func(o *createOptions) {
		o.withBump = true
	}
}

// WithAccountLenHint includes the account length in the instruction data. The
// program trusts the value; the token program rejects it at initialization if
// it is too small. Implies WithBumpHint.
func WithAccountLenHint(length uint16) CreateOption {
	return func(o *createOptions) {
		o.withBump = true
		o.accountLen = &length
	}
}

// WithoutRentSysvar omits the optional rent sysvar account.
func WithoutRentSysvar() CreateOption {
	return func(o *createOptions) {
		o.withoutRent = true
	}
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/0639953c7dd0f5228c3ceda3ba68fece3b46ff1d/associated-token-account/program/src/lib.rs#L54
func CreateAssociatedTokenAccount(subsidizer, wallet, mint ed25519.PublicKey, opts ...CreateOption) (solana.Instruction, ed25519.PublicKey, error) {
	return createAssociatedTokenAccount(AssociatedCommandCreate, subsidizer, wallet, mint, opts...)
}

// CreateAssociatedTokenAccountIdempotent succeeds without changes if the
// associated account already exists for the wallet and mint.
func CreateAssociatedTokenAccountIdempotent(subsidizer, wallet, mint ed25519.PublicKey, opts ...CreateOption) (solana.Instruction, ed25519.PublicKey, error) {
	return createAssociatedTokenAccount(AssociatedCommandCreateIdempotent, subsidizer, wallet, mint, opts...)
}

// CreateAssociatedTokenAccountPrefunded creates an associated account whose
// address was topped up earlier in the same transaction.
func CreateAssociatedTokenAccountPrefunded(subsidizer, wallet, mint ed25519.PublicKey, opts ...CreateOption) (solana.Instruction, ed25519.PublicKey, error) {
	return createAssociatedTokenAccount(AssociatedCommandCreateAccountPrefunded, subsidizer, wallet, mint, opts...)
}

func createAssociatedTokenAccount(command AssociatedCommand, subsidizer, wallet, mint ed25519.PublicKey, opts ...CreateOption) (solana.Instruction, ed25519.PublicKey, error) {
	o := &createOptions{
		tokenProgram: ProgramKey,
	}
	for _, opt := range opts {
		opt(o)
	}

	addr, bump, err := GetAssociatedAccountWithProgram(wallet, mint, o.tokenProgram)
	if err != nil {
		return solana.Instruction{}, nil, err
	}

	var data []byte
	switch {
	case o.accountLen != nil:
		data = make([]byte, 4)
		data[0] = byte(command)
		data[1] = bump
		binary.LittleEndian.PutUint16(data[2:], *o.accountLen)
	case o.withBump:
		data = []byte{byte(command), bump}
	case command == AssociatedCommandCreate:
		data = []byte{}
	default:
		data = []byte{byte(command)}
	}

	accounts := []solana.AccountMeta{
		solana.NewAccountMeta(subsidizer, true),
		solana.NewAccountMeta(addr, false),
		solana.NewReadonlyAccountMeta(wallet, false),
		solana.NewReadonlyAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
		solana.NewReadonlyAccountMeta(o.tokenProgram, false),
	}
	if !o.withoutRent {
		accounts = append(accounts, solana.NewReadonlyAccountMeta(system.RentSysVar, false))
	}

	return solana.NewInstruction(
		AssociatedTokenAccountProgramKey,
		data,
		accounts...,
	), addr, nil
}

type DecompiledCreateAssociatedAccount struct {
	Subsidizer   ed25519.PublicKey
	Address      ed25519.PublicKey
	Owner        ed25519.PublicKey
	Mint         ed25519.PublicKey
	TokenProgram ed25519.PublicKey

	Command    AssociatedCommand
	Bump       *uint8
	AccountLen *uint16
}

func DecompileCreateAssociatedAccount(m solana.Message, index int) (*DecompiledCreateAssociatedAccount, error) {
	if index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]
	if !bytes.Equal(m.Accounts[i.ProgramIndex], AssociatedTokenAccountProgramKey) {
		return nil, solana.ErrIncorrectProgram
	}

	v := &DecompiledCreateAssociatedAccount{
		Command: AssociatedCommandCreate,
	}
	if len(i.Data) > 0 {
		v.Command = AssociatedCommand(i.Data[0])
	}
	switch v.Command {
	case AssociatedCommandCreate, AssociatedCommandCreateIdempotent, AssociatedCommandCreateAccountPrefunded:
	default:
		return nil, solana.ErrIncorrectInstruction
	}

	switch len(i.Data) {
	case 0, 1:
	case 2:
		v.Bump = &i.Data[1]
	case 4:
		v.Bump = &i.Data[1]
		accountLen := binary.LittleEndian.Uint16(i.Data[2:])
		v.AccountLen = &accountLen
	default:
		return nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}

	if len(i.Accounts) != 6 && len(i.Accounts) != 7 {
		return nil, errors.Errorf("invalid number of accounts: %d (expected 6 or 7)", len(i.Accounts))
	}

	if !bytes.Equal(m.Accounts[i.Accounts[4]], system.ProgramKey[:]) {
		return nil, errors.Errorf("system program key mismatch")
	}
	if len(i.Accounts) == 7 && !bytes.Equal(m.Accounts[i.Accounts[6]], system.RentSysVar) {
		return nil, errors.Errorf("rent sysvar mismatch")
	}

	v.Subsidizer = m.Accounts[i.Accounts[0]]
	v.Address = m.Accounts[i.Accounts[1]]
	v.Owner = m.Accounts[i.Accounts[2]]
	v.Mint = m.Accounts[i.Accounts[3]]
	v.TokenProgram = m.Accounts[i.Accounts[5]]
	return v, nil
}

type recoverOptions struct {
	tokenProgram ed25519.PublicKey
	withBumps    bool
}

// RecoverOption configures the recover instruction builders.
type RecoverOption func(*recoverOptions)

// WithRecoverTokenProgram sets the token program owning both mints. Defaults
// to the legacy token program.
func WithRecoverTokenProgram(program ed25519.PublicKey) RecoverOption {
	return func(o *recoverOptions) {
		o.tokenProgram = program
	}
}

// WithRecoverBumpHints includes the owner, nested and destination bumps in the
// instruction data.
func WithRecoverBumpHints() RecoverOption {
	return func(o *recoverOptions) {
		o.withBumps = true
	}
}

// RecoverNested builds an instruction that moves every token out of the
// associated account for nestedMint owned by the wallet's associated account
// for ownerMint, then closes it to the wallet. The wallet must sign.
func RecoverNested(wallet, ownerMint, nestedMint ed25519.PublicKey, opts ...RecoverOption) (solana.Instruction, error) {
	return recoverNested(AssociatedCommandRecoverNested, wallet, ownerMint, nestedMint, nil, opts...)
}

// RecoverMultisig is RecoverNested for a wallet that is a token program
// multisig. The listed signers authorize the recovery in its place.
func RecoverMultisig(wallet, ownerMint, nestedMint ed25519.PublicKey, signers []ed25519.PublicKey, opts ...RecoverOption) (solana.Instruction, error) {
	if len(signers) == 0 {
		return solana.Instruction{}, errors.New("multisig recovery requires at least one signer")
	}
	if len(signers) > MaxSigners {
		return solana.Instruction{}, errors.Errorf("too many signers: %d", len(signers))
	}

	return recoverNested(AssociatedCommandRecoverMultisig, wallet, ownerMint, nestedMint, signers, opts...)
}

func recoverNested(command AssociatedCommand, wallet, ownerMint, nestedMint ed25519.PublicKey, signers []ed25519.PublicKey, opts ...RecoverOption) (solana.Instruction, error) {
	o := &recoverOptions{
		tokenProgram: ProgramKey,
	}
	for _, opt := range opts {
		opt(o)
	}

	owner, ownerBump, err := GetAssociatedAccountWithProgram(wallet, ownerMint, o.tokenProgram)
	if err != nil {
		return solana.Instruction{}, errors.Wrap(err, "failed to derive owner associated account")
	}
	nested, nestedBump, err := GetAssociatedAccountWithProgram(owner, nestedMint, o.tokenProgram)
	if err != nil {
		return solana.Instruction{}, errors.Wrap(err, "failed to derive nested associated account")
	}
	destination, destinationBump, err := GetAssociatedAccountWithProgram(wallet, nestedMint, o.tokenProgram)
	if err != nil {
		return solana.Instruction{}, errors.Wrap(err, "failed to derive destination associated account")
	}

	data := []byte{byte(command)}
	if o.withBumps {
		data = append(data, ownerBump, nestedBump, destinationBump)
	}

	accounts := []solana.AccountMeta{
		solana.NewAccountMeta(nested, false),
		solana.NewReadonlyAccountMeta(nestedMint, false),
		solana.NewAccountMeta(destination, false),
		solana.NewReadonlyAccountMeta(owner, false),
		solana.NewReadonlyAccountMeta(ownerMint, false),
		solana.NewAccountMeta(wallet, len(signers) == 0),
		solana.NewReadonlyAccountMeta(o.tokenProgram, false),
	}
	for _, signer := range signers {
		accounts = append(accounts, solana.NewReadonlyAccountMeta(signer, true))
	}

	return solana.NewInstruction(
		AssociatedTokenAccountProgramKey,
		data,
		accounts...,
	), nil
}

type DecompiledRecoverNested struct {
	Nested       ed25519.PublicKey
	NestedMint   ed25519.PublicKey
	Destination  ed25519.PublicKey
	Owner        ed25519.PublicKey
	OwnerMint    ed25519.PublicKey
	Wallet       ed25519.PublicKey
	TokenProgram ed25519.PublicKey
	Signers      []ed25519.PublicKey

	Command AssociatedCommand
	// OwnerBump, NestedBump and DestinationBump are set together when the
	// instruction carries bump hints.
	OwnerBump       *uint8
	NestedBump      *uint8
	DestinationBump *uint8
}

// DecompileRecoverNested decompiles either RecoverNested or RecoverMultisig.
func DecompileRecoverNested(m solana.Message, index int) (*DecompiledRecoverNested, error) {
	if index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]
	if !bytes.Equal(m.Accounts[i.ProgramIndex], AssociatedTokenAccountProgramKey) {
		return nil, solana.ErrIncorrectProgram
	}
	if len(i.Data) == 0 {
		return nil, solana.ErrIncorrectInstruction
	}

	command := AssociatedCommand(i.Data[0])
	if command != AssociatedCommandRecoverNested && command != AssociatedCommandRecoverMultisig {
		return nil, solana.ErrIncorrectInstruction
	}
	if len(i.Data) != 1 && len(i.Data) != 4 {
		return nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}
	if len(i.Accounts) < 7 {
		return nil, errors.Errorf("invalid number of accounts: %d (expected at least 7)", len(i.Accounts))
	}

	v := &DecompiledRecoverNested{
		Nested:       m.Accounts[i.Accounts[0]],
		NestedMint:   m.Accounts[i.Accounts[1]],
		Destination:  m.Accounts[i.Accounts[2]],
		Owner:        m.Accounts[i.Accounts[3]],
		OwnerMint:    m.Accounts[i.Accounts[4]],
		Wallet:       m.Accounts[i.Accounts[5]],
		TokenProgram: m.Accounts[i.Accounts[6]],
		Command:      command,
	}
	for _, index := range i.Accounts[7:] {
		v.Signers = append(v.Signers, m.Accounts[index])
	}
	if len(i.Data) == 4 {
		v.OwnerBump = &i.Data[1]
		v.NestedBump = &i.Data[2]
		v.DestinationBump = &i.Data[3]
	}

	return v, nil
}

type associatedAccount struct {
	address ed25519.PublicKey
	bump    uint8
}

// AssociatedAccountCache memoizes associated account derivations, which cost
// up to 256 hashes and curve checks each.
type AssociatedAccountCache struct {
	cache cache.Cache
}

// NewAssociatedAccountCache returns a cache holding up to maxEntries
// derivations.
func NewAssociatedAccountCache(maxEntries int) *AssociatedAccountCache {
	return &AssociatedAccountCache{
		cache: cache.NewCache(maxEntries),
	}
}

// Get returns the associated account address and bump, deriving and caching it
// on a miss.
func (c *AssociatedAccountCache) Get(wallet, mint, tokenProgram ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	key := associatedAccountCacheKey(wallet, mint, tokenProgram)
	if cached, ok := c.cache.Retrieve(key); ok {
		entry := cached.(*associatedAccount)
		return entry.address, entry.bump, nil
	}

	addr, bump, err := GetAssociatedAccountWithProgram(wallet, mint, tokenProgram)
	if err != nil {
		return nil, 0, err
	}

	c.cache.Upsert(key, &associatedAccount{address: addr, bump: bump}, 1)
	return addr, bump, nil
}

// Len returns the number of cached derivations.
func (c *AssociatedAccountCache) Len() int {
	return c.cache.Len()
}

func associatedAccountCacheKey(wallet, mint, tokenProgram ed25519.PublicKey) string {
	key := make([]byte, 0, 3*ed25519.PublicKeySize)
	key = append(key, wallet...)
	key = append(key, tokenProgram...)
	key = append(key, mint...)
	return string(key)
}
