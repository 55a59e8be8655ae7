package envelope

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/littlerose/cryptoroom/internal/mode"
)

const (
	// MagicSize is the length of the leading magic bytes.
	MagicSize = 7
	// TagSize is the length of the ASCII program tag.
	TagSize = 47
	// HashSize is the length of the reserved, zero-filled hash field.
	HashSize = 64
	// LengthSize is the length of the sealed length field.
	LengthSize = 8

	// SignedStart is the offset where the signed region begins.
	SignedStart = MagicSize + TagSize + HashSize
	// DataStart is the offset of the first ciphertext block.
	DataStart = SignedStart + LengthSize
	// HeaderSize is the full header length.
	HeaderSize = DataStart

	// IVSize is the length of the IV stored after the ciphertext.
	IVSize = mode.RegisterSize
)

// Tag identifies files written by this program.
const Tag = "I'll always have a little red rose in my heart "

// Magic opens every file written by this program, envelopes and key
// containers alike.
var Magic = [MagicSize]byte{0xf9, 0xc5, 0xa8, 0xd3, 0x47, 0xb6, 0x3a}

// Header is the fixed envelope prefix.
type Header struct {
	// SealedLength is the ciphertext length plus the IV.
	SealedLength uint64
}

// NewHeader returns the header for a plaintext of n bytes.
func NewHeader(n uint64) Header {
	return Header{SealedLength: mode.SealedLength(n)}
}

// MarshalBinary encodes the header. The hash field is left zeroed; integrity
// is provided by the signature.
func (h Header) MarshalBinary() ([]byte, error) {
	out := make([]byte, HeaderSize)
	copy(out, Magic[:])
	copy(out[MagicSize:], Tag)
	binary.LittleEndian.PutUint64(out[SignedStart:], h.SealedLength)
	return out, nil
}

// ParseHeader decodes the first HeaderSize bytes of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header is %d bytes, want %d", ErrTruncated, len(b), HeaderSize)
	}
	if !bytes.Equal(b[:MagicSize], Magic[:]) {
		return Header{}, fmt.Errorf("%w: bad magic", ErrNotEnvelope)
	}
	if string(b[MagicSize:MagicSize+TagSize]) != Tag {
		return Header{}, fmt.Errorf("%w: bad program tag", ErrNotEnvelope)
	}
	h := Header{SealedLength: binary.LittleEndian.Uint64(b[SignedStart:])}
	if h.SealedLength < 2*mode.RegisterSize {
		return Header{}, fmt.Errorf("%w: sealed length %d is below the minimum", ErrTruncated, h.SealedLength)
	}
	return h, nil
}

// TrailerStart returns the offset of the first metadata block.
func (h Header) TrailerStart() int64 {
	return DataStart + int64(h.SealedLength)
}

// IVStart returns the offset of the stored IV.
func (h Header) IVStart() int64 {
	return h.TrailerStart() - IVSize
}
