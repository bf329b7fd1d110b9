package solana

import (
	"bytes"
	"crypto/ed25519"
	"io"

	"github.com/pkg/errors"

	"github.com/solana-program/associated-token-account/pkg/solana/shortvec"
)

// Wire layout of a legacy transaction:
//
//	signatures:   compact-u16 count, 64 bytes each
//	header:       3 bytes
//	accounts:     compact-u16 count, 32 bytes each
//	blockhash:    32 bytes
//	instructions: compact-u16 count, each program index, compact account
//	              indexes and compact data

func (t Transaction) Marshal() []byte {
	var b bytes.Buffer

	_, _ = shortvec.EncodeLen(&b, len(t.Signatures))
	for _, sig := range t.Signatures {
		b.Write(sig[:])
	}
	b.Write(t.Message.Marshal())

	return b.Bytes()
}

func (t *Transaction) Unmarshal(b []byte) error {
	r := &wireReader{r: bytes.NewReader(b)}

	count, err := r.len("signature count")
	if err != nil {
		return err
	}

	t.Signatures = make([]Signature, count)
	for i := range t.Signatures {
		if err := r.fill(t.Signatures[i][:], "signature"); err != nil {
			return errors.Wrapf(err, "signature %d", i)
		}
	}

	return t.Message.Unmarshal(r.rest())
}

func (m Message) Marshal() []byte {
	var b bytes.Buffer

	b.Write([]byte{m.Header.NumSignatures, m.Header.NumReadonlySigned, m.Header.NumReadOnly})

	_, _ = shortvec.EncodeLen(&b, len(m.Accounts))
	for _, account := range m.Accounts {
		b.Write(account)
	}

	b.Write(m.RecentBlockhash[:])

	_, _ = shortvec.EncodeLen(&b, len(m.Instructions))
	for _, ix := range m.Instructions {
		b.WriteByte(ix.ProgramIndex)
		writeCompactBytes(&b, ix.Accounts)
		writeCompactBytes(&b, ix.Data)
	}

	return b.Bytes()
}

// Unmarshal decodes a legacy message. Versioned messages, which set the top
// bit of the first byte, are rejected.
func (m *Message) Unmarshal(b []byte) error {
	if len(b) == 0 {
		return errors.New("empty message")
	}
	if b[0]&0x80 != 0 {
		return errors.New("versioned messages not supported")
	}

	r := &wireReader{r: bytes.NewReader(b)}

	var header [3]byte
	if err := r.fill(header[:], "header"); err != nil {
		return err
	}
	m.Header = Header{
		NumSignatures:     header[0],
		NumReadonlySigned: header[1],
		NumReadOnly:       header[2],
	}

	count, err := r.len("account count")
	if err != nil {
		return err
	}
	m.Accounts = make([]ed25519.PublicKey, count)
	for i := range m.Accounts {
		m.Accounts[i] = make(ed25519.PublicKey, ed25519.PublicKeySize)
		if err := r.fill(m.Accounts[i], "account"); err != nil {
			return errors.Wrapf(err, "account %d", i)
		}
	}

	if err := r.fill(m.RecentBlockhash[:], "recent blockhash"); err != nil {
		return err
	}

	count, err = r.len("instruction count")
	if err != nil {
		return err
	}
	m.Instructions = make([]CompiledInstruction, count)
	for i := range m.Instructions {
		ix, err := r.instruction(len(m.Accounts))
		if err != nil {
			return errors.Wrapf(err, "instruction %d", i)
		}
		m.Instructions[i] = ix
	}

	return nil
}

func writeCompactBytes(b *bytes.Buffer, data []byte) {
	_, _ = shortvec.EncodeLen(b, len(data))
	b.Write(data)
}

type wireReader struct {
	r *bytes.Reader
}

func (w *wireReader) len(what string) (int, error) {
	n, err := shortvec.DecodeLen(w.r)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read %s", what)
	}
	return n, nil
}

func (w *wireReader) fill(dst []byte, what string) error {
	if _, err := io.ReadFull(w.r, dst); err != nil {
		return errors.Wrapf(err, "failed to read %s", what)
	}
	return nil
}

func (w *wireReader) compactBytes(what string) ([]byte, error) {
	n, err := w.len(what + " length")
	if err != nil {
		return nil, err
	}

	b := make([]byte, n)
	if err := w.fill(b, what); err != nil {
		return nil, err
	}
	return b, nil
}

// instruction reads a compiled instruction whose indexes must address one of
// numAccounts accounts.
func (w *wireReader) instruction(numAccounts int) (ix CompiledInstruction, err error) {
	if ix.ProgramIndex, err = w.r.ReadByte(); err != nil {
		return ix, errors.Wrap(err, "failed to read program index")
	}
	if int(ix.ProgramIndex) >= numAccounts {
		return ix, errors.Errorf("program index %d out of range", ix.ProgramIndex)
	}

	if ix.Accounts, err = w.compactBytes("account indexes"); err != nil {
		return ix, err
	}
	for _, index := range ix.Accounts {
		if int(index) >= numAccounts {
			return ix, errors.Errorf("account index %d out of range", index)
		}
	}

	if ix.Data, err = w.compactBytes("data"); err != nil {
		return ix, err
	}
	return ix, nil
}

func (w *wireReader) rest() []byte {
	b := make([]byte, w.r.Len())
	_, _ = w.r.Read(b)
	return b
}
