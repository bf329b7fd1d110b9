package memory

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"sync"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/solana-program/associated-token-account/pkg/solana"
	"github.com/solana-program/associated-token-account/pkg/solana/runtime"
	"github.com/solana-program/associated-token-account/pkg/solana/system"
	"github.com/solana-program/associated-token-account/pkg/solana/token"
)

// nativeLoaderKey owns the builtin programs registered with a bank.
var nativeLoaderKey ed25519.PublicKey

func init() {
	var err error
	if nativeLoaderKey, err = base58.Decode("NativeLoader1111111111111111111111111111111"); err != nil {
		panic(err)
	}
}

// Invocation records a single program execution within a transaction. Depth 1
// is a top-level instruction, deeper entries are cross-program invocations.
type Invocation struct {
	Depth   int
	Program ed25519.PublicKey
	Data    []byte
}

type Option func(*Bank)

// WithRent overrides the rent parameters of the bank.
func WithRent(rent system.Rent) Option {
	return func(b *Bank) {
		b.rent = rent
	}
}

// Bank is an in-memory account store that executes transactions against
// registered programs.
//
// Transactions are serialized. A failed transaction leaves every account
// untouched.
type Bank struct {
	log *logrus.Entry

	mu          sync.Mutex
	accounts    map[string]*solana.AccountInfo
	programs    map[string]runtime.Program
	rent        system.Rent
	invocations []Invocation
}

// NewBank returns a bank with the system program and both token programs
// registered, and the rent sysvar populated.
func NewBank(opts ...Option) *Bank {
	b := &Bank{
		log:      logrus.StandardLogger().WithField("type", "solana/runtime/memory"),
		accounts: make(map[string]*solana.AccountInfo),
		programs: make(map[string]runtime.Program),
		rent:     system.DefaultRent(),
	}

	for _, opt := range opts {
		opt(b)
	}

	b.RegisterProgram(system.ProgramKey[:], &systemProgram{})
	b.RegisterProgram(token.ProgramKey, &tokenProgram{})
	b.RegisterProgram(token.Program2022Key, &tokenProgram{})

	b.SetAccount(&solana.AccountInfo{
		Key:      system.RentSysVar,
		Owner:    system.SysvarOwnerKey,
		Lamports: b.rent.MinimumBalance(system.RentSize),
		Data:     b.rent.Marshal(),
	})

	return b
}

// RegisterProgram installs program at key, replacing any previous program.
func (b *Bank) RegisterProgram(key ed25519.PublicKey, program runtime.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := solana.Base58(key)
	b.programs[id] = program
	b.accounts[id] = &solana.AccountInfo{
		Key:        cloneKey(key),
		Owner:      nativeLoaderKey,
		Lamports:   1,
		Executable: true,
	}
}

// SetAccount stores a copy of account. Privilege flags are ignored.
func (b *Bank) SetAccount(account *solana.AccountInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored := account.Clone()
	stored.IsSigner = false
	stored.IsWritable = false
	b.accounts[solana.Base58(account.Key)] = stored
}

// GetAccount returns a copy of the account at key.
func (b *Bank) GetAccount(key ed25519.PublicKey) (*solana.AccountInfo, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	account, ok := b.accounts[solana.Base58(key)]
	if !ok {
		return nil, false
	}
	return account.Clone(), true
}

// Rent returns the rent parameters of the bank.
func (b *Bank) Rent() system.Rent {
	return b.rent
}

// Invocations returns the executions recorded by the most recent transaction,
// successful or not, in execution order.
func (b *Bank) Invocations() []Invocation {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]Invocation(nil), b.invocations...)
}

// Execute builds a transaction out of instructions, signs it with signers and
// processes it. The first signer pays.
func (b *Bank) Execute(ctx context.Context, signers []ed25519.PrivateKey, instructions ...solana.Instruction) error {
	if len(signers) == 0 {
		return errors.New("at least one signer is required")
	}

	tx := solana.NewLegacyTransaction(signers[0].Public().(ed25519.PublicKey), instructions...)
	if err := tx.Sign(signers...); err != nil {
		return errors.Wrap(err, "failed to sign transaction")
	}

	return b.ProcessTransaction(ctx, tx)
}

// ProcessTransaction verifies and executes every instruction of tx.
//
// A failing instruction aborts the transaction and is reported as a
// *solana.TransactionError carrying the instruction index and its typed error.
func (b *Bank) ProcessTransaction(ctx context.Context, tx solana.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.invocations = nil

	if err := tx.VerifySignatures(); err != nil {
		b.log.WithError(err).Info("transaction signature verification failed")
		return solana.NewTransactionError(solana.TransactionErrorSignatureFailure)
	}

	log := b.log.WithFields(logrus.Fields{
		"method":    "ProcessTransaction",
		"signature": base58.Encode(tx.Signature()),
	})

	if err := sanitize(&tx.Message); err != nil {
		log.WithError(err).Info("transaction failed to sanitize")
		return solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)
	}

	txn := &transaction{
		bank:    b,
		working: make(map[string]*solana.AccountInfo),
	}

	for i, ix := range tx.Message.Instructions {
		txn.returnProgram, txn.returnData = nil, nil

		err := txn.processInstruction(ctx, &tx.Message, ix)
		if err == nil {
			continue
		}

		b.invocations = txn.invocations
		log.WithError(err).WithField("instruction", i).Info("instruction failed")

		return solana.TransactionErrorFromInstructionError(&solana.InstructionError{
			Index: i,
			Err:   solana.ProgramErrorOf(err),
		})
	}

	txn.commit()
	b.invocations = txn.invocations

	log.WithField("instructions", len(tx.Message.Instructions)).Debug("transaction processed")
	return nil
}

func sanitize(m *solana.Message) error {
	for i, ix := range m.Instructions {
		if int(ix.ProgramIndex) >= len(m.Accounts) {
			return errors.Errorf("instruction %d: program index out of range", i)
		}
		for _, index := range ix.Accounts {
			if int(index) >= len(m.Accounts) {
				return errors.Errorf("instruction %d: account index out of range", i)
			}
		}
	}
	return nil
}

// transaction holds the working set of a transaction in flight. Nothing
// reaches the bank until commit.
type transaction struct {
	bank    *Bank
	working map[string]*solana.AccountInfo

	returnProgram ed25519.PublicKey
	returnData    []byte

	invocations []Invocation
}

func (t *transaction) load(key ed25519.PublicKey) *solana.AccountInfo {
	id := solana.Base58(key)
	if account, ok := t.working[id]; ok {
		return account
	}

	account, ok := t.bank.accounts[id]
	if ok {
		account = account.Clone()
	} else {
		account = &solana.AccountInfo{
			Key:   cloneKey(key),
			Owner: cloneKey(system.ProgramKey[:]),
		}
	}

	t.working[id] = account
	return account
}

func (t *transaction) processInstruction(ctx context.Context, m *solana.Message, ix solana.CompiledInstruction) error {
	views := newViewSet()
	for _, index := range ix.Accounts {
		views.add(t.load(m.Accounts[index]), m.IsSigner(int(index)), m.IsWritable(int(index)))
	}

	return t.execute(ctx, m.Accounts[ix.ProgramIndex], views, ix.Data, 1)
}

func (t *transaction) execute(ctx context.Context, programID ed25519.PublicKey, views *viewSet, data []byte, depth int) error {
	t.invocations = append(t.invocations, Invocation{
		Depth:   depth,
		Program: cloneKey(programID),
		Data:    append([]byte(nil), data...),
	})

	program, ok := t.bank.programs[solana.Base58(programID)]
	if !ok {
		return errors.Wrapf(solana.InstructionErrorUnsupportedProgramID, "program %s", solana.Base58(programID))
	}

	f := &frame{
		txn:     t,
		program: programID,
		depth:   depth,
		views:   views,
	}
	f.snapshot()

	if err := program.Execute(ctx, f, views.ordered, data); err != nil {
		return err
	}

	return f.sync()
}

func (t *transaction) commit() {
	for id, account := range t.working {
		if account.Lamports == 0 && !account.Executable {
			delete(t.bank.accounts, id)
			continue
		}

		stored := account.Clone()
		stored.IsSigner = false
		stored.IsWritable = false
		t.bank.accounts[id] = stored
	}
}

// viewSet is the positional account list handed to a program. Repeated keys
// share one view carrying the union of their privileges.
type viewSet struct {
	ordered []*solana.AccountInfo
	unique  []*solana.AccountInfo
	byKey   map[string]*solana.AccountInfo
}

func newViewSet() *viewSet {
	return &viewSet{byKey: make(map[string]*solana.AccountInfo)}
}

func (s *viewSet) add(account *solana.AccountInfo, isSigner, isWritable bool) {
	id := solana.Base58(account.Key)

	view, ok := s.byKey[id]
	if !ok {
		view = account.Clone()
		view.IsSigner = false
		view.IsWritable = false

		s.byKey[id] = view
		s.unique = append(s.unique, view)
	}

	view.IsSigner = view.IsSigner || isSigner
	view.IsWritable = view.IsWritable || isWritable
	s.ordered = append(s.ordered, view)
}

// frame is a single program execution. It implements runtime.Environment.
type frame struct {
	txn     *transaction
	program ed25519.PublicKey
	depth   int
	views   *viewSet
	pre     map[string]*solana.AccountInfo
}

func (f *frame) snapshot() {
	f.pre = make(map[string]*solana.AccountInfo, len(f.views.unique))
	for _, view := range f.views.unique {
		f.pre[solana.Base58(view.Key)] = view.Clone()
	}
}

// verify checks the changes made through the frame's views since the last
// snapshot against the account ownership rules.
//
// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/program-runtime/src/pre_account.rs#L41
func (f *frame) verify() error {
	var preTotal, postTotal uint64
	for _, post := range f.views.unique {
		pre := f.pre[solana.Base58(post.Key)]
		preTotal += pre.Lamports
		postTotal += post.Lamports

		ownedByProgram := pre.IsOwnedBy(f.program)

		if !bytes.Equal(pre.Owner, post.Owner) && (!post.IsWritable || !ownedByProgram) {
			return errors.Wrapf(solana.InstructionErrorModifiedProgramID, "account %s", solana.Base58(post.Key))
		}

		if pre.Lamports != post.Lamports {
			if !post.IsWritable {
				return errors.Wrapf(solana.InstructionErrorReadonlyLamportChange, "account %s", solana.Base58(post.Key))
			}
			if post.Lamports < pre.Lamports && !ownedByProgram {
				return errors.Wrapf(solana.InstructionErrorExternalAccountLamportSpend, "account %s", solana.Base58(post.Key))
			}
		}

		if !bytes.Equal(pre.Data, post.Data) {
			if !post.IsWritable {
				return errors.Wrapf(solana.InstructionErrorReadonlyDataModified, "account %s", solana.Base58(post.Key))
			}
			if !ownedByProgram {
				return errors.Wrapf(solana.InstructionErrorExternalAccountDataModified, "account %s", solana.Base58(post.Key))
			}
		}
	}

	if preTotal != postTotal {
		return solana.InstructionErrorUnbalancedInstruction
	}

	return nil
}

// sync verifies the frame's changes and publishes them to the working set.
func (f *frame) sync() error {
	if err := f.verify(); err != nil {
		return err
	}

	for _, view := range f.views.unique {
		account := f.txn.working[solana.Base58(view.Key)]
		account.Owner = cloneKey(view.Owner)
		account.Lamports = view.Lamports
		account.Data = cloneData(view.Data)
		account.Executable = view.Executable
	}

	f.snapshot()
	return nil
}

// refresh reloads the frame's views from the working set after a callee ran.
func (f *frame) refresh() {
	for _, view := range f.views.unique {
		account := f.txn.working[solana.Base58(view.Key)]
		view.Owner = cloneKey(account.Owner)
		view.Lamports = account.Lamports
		view.Data = cloneData(account.Data)
		view.Executable = account.Executable
	}

	f.snapshot()
}

func (f *frame) ProgramID() ed25519.PublicKey {
	return f.program
}

func (f *frame) Rent() system.Rent {
	return f.txn.bank.rent
}

func (f *frame) ReturnData() (ed25519.PublicKey, []byte) {
	return f.txn.returnProgram, f.txn.returnData
}

func (f *frame) SetReturnData(data []byte) error {
	if len(data) > runtime.MaxReturnDataSize {
		return errors.Wrapf(solana.InstructionErrorInvalidArgument, "return data too large: %d", len(data))
	}

	f.txn.returnProgram = f.program
	f.txn.returnData = append([]byte(nil), data...)
	return nil
}

// Invoke runs ix as a cross-program invocation.
//
// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/programs/bpf_loader/src/syscalls/cpi.rs#L1058
func (f *frame) Invoke(ctx context.Context, ix solana.Instruction, signerSeeds ...[][]byte) error {
	if f.depth >= runtime.MaxInvokeDepth {
		return solana.InstructionErrorCallDepth
	}

	signers := make(map[string]struct{}, len(signerSeeds))
	for _, seeds := range signerSeeds {
		address, err := solana.CreateProgramAddress(f.program, seeds...)
		if err != nil {
			return errors.Wrap(solana.InstructionErrorInvalidSeeds, err.Error())
		}
		signers[solana.Base58(address)] = struct{}{}
	}

	if _, ok := f.views.byKey[solana.Base58(ix.Program)]; !ok {
		return errors.Wrapf(solana.InstructionErrorMissingAccount, "program %s", solana.Base58(ix.Program))
	}

	for _, meta := range ix.Accounts {
		id := solana.Base58(meta.PublicKey)

		caller, ok := f.views.byKey[id]
		if !ok {
			return errors.Wrapf(solana.InstructionErrorMissingAccount, "account %s", id)
		}

		if meta.IsWritable && !caller.IsWritable {
			return errors.Wrapf(solana.InstructionErrorPrivilegeEscalation, "account %s is not writable", id)
		}

		_, isPDASigner := signers[id]
		if meta.IsSigner && !caller.IsSigner && !isPDASigner {
			return errors.Wrapf(solana.InstructionErrorPrivilegeEscalation, "account %s is not a signer", id)
		}
	}

	if err := f.sync(); err != nil {
		return err
	}

	callee := newViewSet()
	for _, meta := range ix.Accounts {
		callee.add(f.txn.working[solana.Base58(meta.PublicKey)], meta.IsSigner, meta.IsWritable)
	}

	f.txn.returnProgram, f.txn.returnData = nil, nil

	err := f.txn.execute(ctx, ix.Program, callee, ix.Data, f.depth+1)
	f.refresh()
	return err
}

func cloneKey(key ed25519.PublicKey) ed25519.PublicKey {
	return append(ed25519.PublicKey(nil), key...)
}

func cloneData(data []byte) []byte {
	if data == nil {
		return nil
	}
	return append([]byte{}, data...)
}
