// Package encoding serializes build state (such as the incremental
// dependency graph) to a compact, checksummed binary form.
//
// The layout is:
//
//	magic (4 bytes) | keyed BLAKE3 checksum (32 bytes) | msgpack payload
//
// The checksum detects truncated or foreign files. It is not a security
// boundary: the key only separates state written by different projects.
package encoding

import (
	"bytes"
	"crypto/subtle"
	"errors"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/blake3"
)

var magic = []byte("HXS1")

const checksumSize = 32

// Sentinel errors for decoding.
var (
	ErrInvalidFormat    = errors.New("encoding: invalid state format")
	ErrChecksumMismatch = errors.New("encoding: state checksum mismatch")
)

// Encoder encodes and decodes state values.
type Encoder struct {
	key [32]byte
}

// NewEncoder creates an encoder with the given key. Keys that are not
// exactly 32 bytes are hashed down to 32 bytes.
func NewEncoder(key []byte) *Encoder {
	e := &Encoder{}
	if len(key) == len(e.key) {
		copy(e.key[:], key)
	} else {
		e.key = blake3.Sum256(key)
	}
	return e
}

// Encode serializes v with msgpack and prefixes the checksum.
func (e *Encoder) Encode(v any) ([]byte, error) {
	packed, err := msgpack.Marshal(v)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(magic)+checksumSize+len(packed))
	out = append(out, magic...)
	out = append(out, e.sum(packed)...)
	out = append(out, packed...)
	return out, nil
}

// Decode verifies data and unmarshals the payload into v.
func (e *Encoder) Decode(data []byte, v any) error {
	payload, err := e.verify(data)
	if err != nil {
		return err
	}
	return msgpack.Unmarshal(payload, v)
}

// verify checks the header and checksum and returns the payload.
func (e *Encoder) verify(data []byte) ([]byte, error) {
	if len(data) < len(magic)+checksumSize || !bytes.Equal(data[:len(magic)], magic) {
		return nil, ErrInvalidFormat
	}

	sum := data[len(magic) : len(magic)+checksumSize]
	payload := data[len(magic)+checksumSize:]

	if subtle.ConstantTimeCompare(sum, e.sum(payload)) != 1 {
		return nil, ErrChecksumMismatch
	}
	return payload, nil
}

func (e *Encoder) sum(payload []byte) []byte {
	h, err := blake3.NewKeyed(e.key[:])
	if err != nil {
		panic("encoding: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	h.Write(payload)
	return h.Sum(nil)
}
