package kuznyechik

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

const (
	// BlockSize is the cipher block size in bytes.
	BlockSize = 16
	// KeySize is the master key size in bytes.
	KeySize = 32
)

// Block128 is a 128-bit value held as two little-endian 64-bit halves.
type Block128 struct {
	Lo uint64
	Hi uint64
}

// BlockFromBytes reads a block from the first BlockSize bytes of b.
// It panics if b is shorter than BlockSize.
func BlockFromBytes(b []byte) Block128 {
	_ = b[BlockSize-1]
	return Block128{
		Lo: binary.LittleEndian.Uint64(b[0:8]),
		Hi: binary.LittleEndian.Uint64(b[8:16]),
	}
}

// BlockFromArray converts a 16-byte array into a block.
func BlockFromArray(a [BlockSize]byte) Block128 {
	return BlockFromBytes(a[:])
}

// ParseBlock decodes a 32-character hex string into a block.
func ParseBlock(s string) (Block128, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Block128{}, fmt.Errorf("parse block: %w", err)
	}
	if len(raw) != BlockSize {
		return Block128{}, fmt.Errorf("%w: got %d, want %d", ErrInvalidBlockSize, len(raw), BlockSize)
	}
	return BlockFromBytes(raw), nil
}

// PutBytes writes the block into the first BlockSize bytes of dst.
func (b Block128) PutBytes(dst []byte) {
	_ = dst[BlockSize-1]
	binary.LittleEndian.PutUint64(dst[0:8], b.Lo)
	binary.LittleEndian.PutUint64(dst[8:16], b.Hi)
}

// Array returns the serialized block.
func (b Block128) Array() [BlockSize]byte {
	var a [BlockSize]byte
	b.PutBytes(a[:])
	return a
}

// Xor returns b ^ o.
func (b Block128) Xor(o Block128) Block128 {
	return Block128{Lo: b.Lo ^ o.Lo, Hi: b.Hi ^ o.Hi}
}

// Byte returns byte i of the serialized block.
func (b Block128) Byte(i int) byte {
	if i < 8 {
		return byte(b.Lo >> (8 * uint(i)))
	}
	return byte(b.Hi >> (8 * uint(i-8)))
}

// IsZero reports whether all 128 bits are clear.
func (b Block128) IsZero() bool {
	return b.Lo == 0 && b.Hi == 0
}

// String returns the serialized block as lowercase hex.
func (b Block128) String() string {
	a := b.Array()
	return hex.EncodeToString(a[:])
}
