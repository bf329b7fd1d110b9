package solana

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"sort"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
)

var (
	ErrMissingSignature = errors.New("transaction is missing a signature")
	ErrInvalidSignature = errors.New("transaction has an invalid signature")
)

type Signature [ed25519.SignatureSize]byte
type Blockhash [sha256.Size]byte

// Header describes how the message account list is partitioned: signers
// first, with the readonly accounts at the end of each section.
type Header struct {
	NumSignatures     byte
	NumReadonlySigned byte
	NumReadOnly       byte
}

type Message struct {
	Header          Header
	Accounts        []ed25519.PublicKey
	RecentBlockhash Blockhash
	Instructions    []CompiledInstruction
}

type Transaction struct {
	Signatures []Signature
	Message    Message
}

// NewLegacyTransaction compiles instructions into a legacy message paid for by
// payer. Signatures are zero until Sign is called.
func NewLegacyTransaction(payer ed25519.PublicKey, instructions ...Instruction) Transaction {
	metas := []AccountMeta{{PublicKey: payer, IsSigner: true, IsWritable: true, isPayer: true}}
	for _, ix := range instructions {
		metas = append(metas, AccountMeta{PublicKey: ix.Program, isProgram: true})
		metas = append(metas, ix.Accounts...)
	}

	metas = mergeAccountMetas(metas)
	sort.Sort(SortableAccountMeta(metas))

	var m Message
	keys := make([]ed25519.PublicKey, len(metas))
	m.Accounts = make([]ed25519.PublicKey, len(metas))
	for i, meta := range metas {
		keys[i] = meta.PublicKey
		m.Accounts[i] = meta.PublicKey
		if len(meta.PublicKey) == 0 {
			m.Accounts[i] = make(ed25519.PublicKey, ed25519.PublicKeySize)
		}

		switch {
		case meta.IsSigner && !meta.IsWritable:
			m.Header.NumReadonlySigned++
			fallthrough
		case meta.IsSigner:
			m.Header.NumSignatures++
		case !meta.IsWritable:
			m.Header.NumReadOnly++
		}
	}

	// Indexes are resolved against the caller's keys, so a nil key still
	// finds its zero-filled slot.
	for _, ix := range instructions {
		compiled := CompiledInstruction{
			ProgramIndex: byte(indexOf(keys, ix.Program)),
			Accounts:     make([]byte, len(ix.Accounts)),
			Data:         ix.Data,
		}
		for i, account := range ix.Accounts {
			compiled.Accounts[i] = byte(indexOf(keys, account.PublicKey))
		}
		m.Instructions = append(m.Instructions, compiled)
	}

	return Transaction{
		Signatures: make([]Signature, m.Header.NumSignatures),
		Message:    m,
	}
}

// IsSigner reports whether the account at index i is required to sign.
func (m *Message) IsSigner(i int) bool {
	return i < int(m.Header.NumSignatures)
}

// IsWritable reports whether the account at index i was requested as writable.
func (m *Message) IsWritable(i int) bool {
	if signers := int(m.Header.NumSignatures); i < signers {
		return i < signers-int(m.Header.NumReadonlySigned)
	}
	return i < len(m.Accounts)-int(m.Header.NumReadOnly)
}

// Signature returns the payer's signature, which identifies the transaction.
func (t *Transaction) Signature() []byte {
	return t.Signatures[0][:]
}

// Sign adds signatures for each of signers, which must be required signers of
// the message.
func (t *Transaction) Sign(signers ...ed25519.PrivateKey) error {
	message := t.Message.Marshal()

	for _, signer := range signers {
		pub := signer.Public().(ed25519.PublicKey)

		index := indexOf(t.Message.Accounts, pub)
		switch {
		case index < 0:
			return errors.Errorf("signing account %s is not in the account list", base58.Encode(pub))
		case index >= len(t.Signatures):
			return errors.Errorf("signing account %s is not in the list of signers", base58.Encode(pub))
		}

		copy(t.Signatures[index][:], ed25519.Sign(signer, message))
	}

	return nil
}

// VerifySignatures checks that every required signer produced a valid
// signature over the message.
func (t *Transaction) VerifySignatures() error {
	if len(t.Signatures) != int(t.Message.Header.NumSignatures) || len(t.Message.Accounts) < len(t.Signatures) {
		return ErrMissingSignature
	}

	message := t.Message.Marshal()

	var empty Signature
	for i, sig := range t.Signatures {
		signer := t.Message.Accounts[i]
		if sig == empty {
			return errors.Wrapf(ErrMissingSignature, "signer %s", base58.Encode(signer))
		}
		if !ed25519.Verify(signer, message, sig[:]) {
			return errors.Wrapf(ErrInvalidSignature, "signer %s", base58.Encode(signer))
		}
	}

	return nil
}

// mergeAccountMetas collapses repeated keys into their first occurrence,
// keeping the union of the requested privileges.
func mergeAccountMetas(metas []AccountMeta) []AccountMeta {
	merged := make([]AccountMeta, 0, len(metas))
	seen := make(map[string]int, len(metas))

	for _, meta := range metas {
		i, ok := seen[string(meta.PublicKey)]
		if !ok {
			seen[string(meta.PublicKey)] = len(merged)
			merged = append(merged, meta)
			continue
		}

		merged[i].IsSigner = merged[i].IsSigner || meta.IsSigner
		merged[i].IsWritable = merged[i].IsWritable || meta.IsWritable
		merged[i].isPayer = merged[i].isPayer || meta.isPayer
	}

	return merged
}

func indexOf(keys []ed25519.PublicKey, key ed25519.PublicKey) int {
	for i := range keys {
		if bytes.Equal(keys[i], key) {
			return i
		}
	}
	return -1
}
