package keywrap

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// BlockType identifies a metadata block.
type BlockType byte

const (
	// TypePublicKeyHash holds a digest of the recipient public key.
	TypePublicKeyHash BlockType = 114
	// TypeSessionKey holds the wrapped session key.
	TypeSessionKey BlockType = 115
	// TypeSignatureR holds the r component of the file signature.
	TypeSignatureR BlockType = 116
	// TypeSignatureS holds the s component of the file signature.
	TypeSignatureS BlockType = 117
	// TypeSignerKey references the key that verifies the signature.
	TypeSignerKey BlockType = 118
)

// HeaderSize is the encoded size of a block header.
const HeaderSize = 5

func (t BlockType) String() string {
	switch t {
	case TypePublicKeyHash:
		return "public-key-hash"
	case TypeSessionKey:
		return "session-key"
	case TypeSignatureR:
		return "signature-r"
	case TypeSignatureS:
		return "signature-s"
	case TypeSignerKey:
		return "signer-key"
	default:
		return fmt.Sprintf("block-%d", byte(t))
	}
}

// Block is one typed metadata entry.
type Block struct {
	Type BlockType
	Data []byte
}

// Blocks is an ordered block sequence.
type Blocks []Block

// Append adds a block.
func (b *Blocks) Append(t BlockType, data []byte) {
	*b = append(*b, Block{Type: t, Data: data})
}

// AppendSignature adds the R, S and signer reference blocks in the order the
// reader relies on.
func (b *Blocks) AppendSignature(r, s, signer []byte) {
	b.Append(TypeSignatureR, r)
	b.Append(TypeSignatureS, s)
	b.Append(TypeSignerKey, signer)
}

// Size returns the encoded length.
func (b Blocks) Size() int {
	n := 0
	for _, blk := range b {
		n += HeaderSize + len(blk.Data)
	}
	return n
}

// MarshalBinary encodes the sequence.
func (b Blocks) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, b.Size())
	for _, blk := range b {
		if len(blk.Data) > math.MaxInt32 {
			return nil, fmt.Errorf("block %s: payload of %d bytes exceeds the length field", blk.Type, len(blk.Data))
		}
		out = append(out, byte(blk.Type))
		out = binary.LittleEndian.AppendUint32(out, uint32(len(blk.Data)))
		out = append(out, blk.Data...)
	}
	return out, nil
}

// ReadBlocks decodes blocks from r until EOF. base is the absolute offset of
// r's first byte; signStart is the absolute offset of the first R block
// header, or -1 when there is none.
func ReadBlocks(r io.Reader, base int64) (blocks Blocks, signStart int64, err error) {
	br := bufio.NewReader(r)
	signStart = -1
	pos := base
	hdr := make([]byte, HeaderSize)

	for {
		if _, err := io.ReadFull(br, hdr); err != nil {
			if errors.Is(err, io.EOF) {
				return blocks, signStart, nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, -1, formatErr(CodeTruncated, "block header at offset %d is truncated", pos)
			}
			return nil, -1, fmt.Errorf("read block header: %w", err)
		}

		t := BlockType(hdr[0])
		n := int32(binary.LittleEndian.Uint32(hdr[1:]))
		if n < 0 {
			return nil, -1, formatErr(CodeNegativeLength, "block %s at offset %d has negative length", t, pos)
		}
		if t == TypeSignatureR && signStart < 0 {
			signStart = pos
		}

		// The declared length is untrusted; the buffer grows with the bytes
		// actually present.
		var data bytes.Buffer
		if got, err := io.CopyN(&data, br, int64(n)); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, -1, formatErr(CodeTruncated, "block %s at offset %d declares %d bytes, %d present", t, pos, n, got)
			}
			return nil, -1, fmt.Errorf("read block payload: %w", err)
		}

		blocks = append(blocks, Block{Type: t, Data: data.Bytes()})
		pos += HeaderSize + int64(n)
	}
}

func (b Blocks) all(t BlockType) []Block {
	var out []Block
	for _, blk := range b {
		if blk.Type == t {
			out = append(out, blk)
		}
	}
	return out
}

// Check enforces the signature policy: exactly one R, one S and one signer
// reference, with R ahead of S.
func (b Blocks) Check() error {
	_, _, err := b.Signature()
	if err != nil {
		return err
	}
	_, err = b.SignerKey()
	return err
}

// Signature returns the R and S payloads.
func (b Blocks) Signature() (r, s []byte, err error) {
	rs, ss := b.all(TypeSignatureR), b.all(TypeSignatureS)
	if len(rs) != 1 || len(ss) != 1 {
		return nil, nil, formatErr(CodeNoSignature, "file has %d R and %d S signature blocks, want one of each", len(rs), len(ss))
	}
	for _, blk := range b {
		if blk.Type == TypeSignatureS {
			return nil, nil, formatErr(CodeSignatureOrder, "signature S block precedes R")
		}
		if blk.Type == TypeSignatureR {
			break
		}
	}
	return rs[0].Data, ss[0].Data, nil
}

// SignerKey returns the signer reference payload.
func (b Blocks) SignerKey() ([]byte, error) {
	ks := b.all(TypeSignerKey)
	if len(ks) != 1 {
		return nil, formatErr(CodeNoSignerKey, "file has %d signer key blocks, want one", len(ks))
	}
	return ks[0].Data, nil
}

// SessionKey returns the wrapped session key payload.
func (b Blocks) SessionKey() ([]byte, error) {
	ks := b.all(TypeSessionKey)
	switch len(ks) {
	case 0:
		return nil, formatErr(CodeNoSessionKey, "file has no session key block")
	case 1:
		return ks[0].Data, nil
	default:
		return nil, formatErr(CodeManySessionKeys, "file has %d session key blocks", len(ks))
	}
}

// PublicKeyHash returns the recipient key digest payload.
func (b Blocks) PublicKeyHash() ([]byte, error) {
	hs := b.all(TypePublicKeyHash)
	if len(hs) == 0 {
		return nil, formatErr(CodeNoPublicKeyHash, "file has no public key hash block")
	}
	return hs[0].Data, nil
}
