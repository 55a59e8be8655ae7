package mode

import (
	"bufio"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math"

	"github.com/littlerose/cryptoroom/internal/kuznyechik"
)

const bufferSize = 64 * 1024

// EncryptRequest carries the per-file inputs of CBC.Encrypt.
type EncryptRequest struct {
	// Key is the 32-byte session key.
	Key []byte
	// Length is the number of plaintext bytes read from src.
	Length uint64
	// Header is written to dst before the ciphertext.
	Header []byte
	// Trailer is written after the IV, typically serialized metadata blocks.
	Trailer []byte
	// IV is the 32-byte register seed. A random IV is drawn when nil.
	IV []byte
	// Rand is the IV source; crypto/rand when nil.
	Rand io.Reader
	// Progress receives loop notifications.
	Progress Progress
}

// DecryptRequest carries the per-file inputs of CBC.Decrypt.
type DecryptRequest struct {
	// Key is the 32-byte session key.
	Key []byte
	// IV is the 32-byte register seed read from the file trailer.
	IV []byte
	// Offset is where the length block starts in src.
	Offset int64
	// SealedLength, when non-zero, is the ciphertext plus IV size recorded in
	// the header; the decrypted length block must agree with it.
	SealedLength uint64
	// Progress receives loop notifications.
	Progress Progress
}

// CBC is the cipher block chaining mode with a two-block register.
type CBC struct {
	alg kuznyechik.Algorithm
}

// NewCBC returns a CBC mode over alg.
func NewCBC(alg kuznyechik.Algorithm) *CBC {
	return &CBC{alg: alg}
}

// Algorithm returns the underlying block cipher.
func (m *CBC) Algorithm() kuznyechik.Algorithm {
	return m.alg
}

// Encrypt writes Header, the encrypted length block, the encrypted and
// padded plaintext, the IV and Trailer to dst. It returns the IV used.
func (m *CBC) Encrypt(ctx context.Context, src io.Reader, dst io.Writer, req EncryptRequest) ([]byte, error) {
	const bs = kuznyechik.BlockSize

	if req.Length < bs {
		return nil, fmt.Errorf("%w: %d bytes", ErrDataTooShort, req.Length)
	}

	iv := req.IV
	if iv == nil {
		rnd := req.Rand
		if rnd == nil {
			rnd = rand.Reader
		}
		iv = make([]byte, RegisterSize)
		if _, err := io.ReadFull(rnd, iv); err != nil {
			return nil, fmt.Errorf("generate iv: %w", err)
		}
	}
	if len(iv) != RegisterSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidIV, len(iv), RegisterSize)
	}

	rk, err := m.alg.EncryptKeys(req.Key)
	if err != nil {
		return nil, err
	}
	defer rk.Wipe()

	in := bufio.NewReaderSize(src, bufferSize)
	out := bufio.NewWriterSize(dst, bufferSize)

	if _, err := out.Write(req.Header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	reg := newRegister(iv)
	buf := make([]byte, bs)

	c := reg.encrypt(m.alg, rk, kuznyechik.Block128{Lo: req.Length})
	c.PutBytes(buf)
	if _, err := out.Write(buf); err != nil {
		return nil, fmt.Errorf("write length block: %w", err)
	}

	blocks := req.Length / bs
	req.Progress.dataSize(req.Length)
	req.Progress.blockCount(blocks)

	var n uint64
	for ; n < blocks; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(in, buf); err != nil {
			return nil, fmt.Errorf("read block %d: %w", n, err)
		}
		reg.encrypt(m.alg, rk, kuznyechik.BlockFromBytes(buf)).PutBytes(buf)
		if _, err := out.Write(buf); err != nil {
			return nil, fmt.Errorf("write block %d: %w", n, err)
		}
		req.Progress.blockDone(n)
	}

	if tail := int(req.Length % bs); tail != 0 {
		if _, err := io.ReadFull(in, buf[:tail]); err != nil {
			return nil, fmt.Errorf("read final block: %w", err)
		}
		pad(buf, tail)
		reg.encrypt(m.alg, rk, kuznyechik.BlockFromBytes(buf)).PutBytes(buf)
		if _, err := out.Write(buf); err != nil {
			return nil, fmt.Errorf("write final block: %w", err)
		}
		req.Progress.blockDone(n)
	}

	if _, err := out.Write(iv); err != nil {
		return nil, fmt.Errorf("write iv: %w", err)
	}
	if _, err := out.Write(req.Trailer); err != nil {
		return nil, fmt.Errorf("write trailer: %w", err)
	}
	if err := out.Flush(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}
	return iv, nil
}

// Decrypt reads the length block at req.Offset and writes exactly that many
// plaintext bytes to dst. On failure dst may hold a partial plaintext.
func (m *CBC) Decrypt(ctx context.Context, src io.ReaderAt, dst io.Writer, req DecryptRequest) error {
	const bs = kuznyechik.BlockSize

	if len(req.IV) != RegisterSize {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidIV, len(req.IV), RegisterSize)
	}

	rk, err := m.alg.DecryptKeys(req.Key)
	if err != nil {
		return err
	}
	defer rk.Wipe()

	in := bufio.NewReaderSize(io.NewSectionReader(src, req.Offset, math.MaxInt64-req.Offset), bufferSize)
	out := bufio.NewWriterSize(dst, bufferSize)

	reg := newRegister(req.IV)
	buf := make([]byte, bs)

	if _, err := io.ReadFull(in, buf); err != nil {
		return fmt.Errorf("read length block: %w", err)
	}
	lb, err := reg.decrypt(m.alg, rk, kuznyechik.BlockFromBytes(buf))
	if err != nil {
		return err
	}
	length := lb.Lo
	if req.SealedLength != 0 && (lb.Hi != 0 || length < bs || SealedLength(length) != req.SealedLength) {
		return fmt.Errorf("%w: length block %d, sealed size %d", ErrLengthMismatch, length, req.SealedLength)
	}

	blocks := length / bs
	req.Progress.dataSize(length)
	req.Progress.blockCount(blocks)

	var n uint64
	for ; n < blocks; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.ReadFull(in, buf); err != nil {
			return fmt.Errorf("read block %d: %w", n, err)
		}
		p, err := reg.decrypt(m.alg, rk, kuznyechik.BlockFromBytes(buf))
		if err != nil {
			return err
		}
		p.PutBytes(buf)
		if _, err := out.Write(buf); err != nil {
			return fmt.Errorf("write block %d: %w", n, err)
		}
		req.Progress.blockDone(n)
	}

	if tail := int(length % bs); tail != 0 {
		if _, err := io.ReadFull(in, buf); err != nil {
			return fmt.Errorf("read final block: %w", err)
		}
		p, err := reg.decrypt(m.alg, rk, kuznyechik.BlockFromBytes(buf))
		if err != nil {
			return err
		}
		p.PutBytes(buf)
		if _, err := out.Write(buf[:tail]); err != nil {
			return fmt.Errorf("write final block: %w", err)
		}
		req.Progress.blockDone(n)
	}

	if err := out.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}
