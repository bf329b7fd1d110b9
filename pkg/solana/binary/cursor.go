// Package binary reads and writes the fixed little-endian layouts used by
// on-chain account state.
//
// Optional fields use the COption encoding: a 4 byte tag (1 when set) followed
// by the value, which is zeroed when unset.
package binary

import (
	"crypto/ed25519"
	"encoding/binary"
)

// OptionSize is the size of a COption tag.
const OptionSize = 4

// Writer writes fields sequentially into a preallocated buffer. Writing past
// the end of the buffer panics.
type Writer struct {
	b   []byte
	off int
}

func NewWriter(b []byte) *Writer {
	return &Writer{b: b}
}

// Offset returns the number of bytes written so far.
func (w *Writer) Offset() int { return w.off }

func (w *Writer) Uint8(v uint8) {
	w.b[w.off] = v
	w.off++
}

func (w *Writer) Bool(v bool) {
	if v {
		w.Uint8(1)
	} else {
		w.Uint8(0)
	}
}

func (w *Writer) Uint64(v uint64) {
	binary.LittleEndian.PutUint64(w.b[w.off:], v)
	w.off += 8
}

// Key writes a 32 byte key. A nil key is written as zeros.
func (w *Writer) Key(key ed25519.PublicKey) {
	dst := w.b[w.off : w.off+ed25519.PublicKeySize]
	clear(dst)
	copy(dst, key)
	w.off += ed25519.PublicKeySize
}

// OptionalKey writes key as a COption, unset when key is empty.
func (w *Writer) OptionalKey(key ed25519.PublicKey) {
	w.tag(len(key) > 0)
	w.Key(key)
}

// OptionalUint64 writes v as a COption, unset when v is nil.
func (w *Writer) OptionalUint64(v *uint64) {
	w.tag(v != nil)
	if v == nil {
		w.Uint64(0)
		return
	}
	w.Uint64(*v)
}

func (w *Writer) tag(set bool) {
	var v uint32
	if set {
		v = 1
	}
	binary.LittleEndian.PutUint32(w.b[w.off:], v)
	w.off += OptionSize
}

// Reader reads fields sequentially from a buffer. Callers check the buffer is
// long enough for the layout up front; reading past the end panics.
type Reader struct {
	b   []byte
	off int
}

func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

// Offset returns the number of bytes read so far.
func (r *Reader) Offset() int { return r.off }

func (r *Reader) Uint8() uint8 {
	v := r.b[r.off]
	r.off++
	return v
}

// Bool reads a byte, where any non-zero value is true.
func (r *Reader) Bool() bool {
	return r.Uint8() != 0
}

func (r *Reader) Uint64() uint64 {
	v := binary.LittleEndian.Uint64(r.b[r.off:])
	r.off += 8
	return v
}

// Key returns a copy of the next 32 bytes.
func (r *Reader) Key() ed25519.PublicKey {
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(key, r.b[r.off:])
	r.off += ed25519.PublicKeySize
	return key
}

// OptionalKey reads a COption key, returning nil when unset.
func (r *Reader) OptionalKey() ed25519.PublicKey {
	if !r.tag() {
		r.off += ed25519.PublicKeySize
		return nil
	}
	return r.Key()
}

// OptionalUint64 reads a COption integer, returning nil when unset.
func (r *Reader) OptionalUint64() *uint64 {
	set := r.tag()
	v := r.Uint64()
	if !set {
		return nil
	}
	return &v
}

func (r *Reader) tag() bool {
	v := binary.LittleEndian.Uint32(r.b[r.off:])
	r.off += OptionSize
	return v == 1
}
