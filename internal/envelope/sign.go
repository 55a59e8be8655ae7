package envelope

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/google/uuid"

	"github.com/littlerose/cryptoroom/internal/ec"
	"github.com/littlerose/cryptoroom/internal/keywrap"
	"github.com/littlerose/cryptoroom/internal/streebog"
)

const (
	// MaxSignSize is the largest envelope Sign accepts.
	MaxSignSize = 1_900_000_000

	// SignerRefSize is the length of the signer reference block payload.
	SignerRefSize = 58
)

// SigningKey is an EC key pair together with the reference written next to
// the signature.
type SigningKey struct {
	Curve *ec.Curve
	D     *big.Int
	Q     *ec.Point
	// Ref is stored in the signer reference block, zero-padded or cut to
	// SignerRefSize bytes.
	Ref []byte
}

// SignerRef encodes a key ID as a signer reference payload.
func SignerRef(id uuid.UUID) []byte {
	ref := make([]byte, SignerRefSize)
	copy(ref, id.String())
	return ref
}

// ParseSignerRef decodes a payload produced by SignerRef.
func ParseSignerRef(ref []byte) (uuid.UUID, error) {
	if len(ref) < 36 {
		return uuid.Nil, fmt.Errorf("%w: %d bytes", ErrInvalidSignerRef, len(ref))
	}
	id, err := uuid.ParseBytes(ref[:36])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidSignerRef, err)
	}
	return id, nil
}

// Sign signs [SignedStart, EOF) of the envelope at path and appends the R,
// S and signer reference blocks. Files larger than MaxSignSize are left
// untouched and ErrFileTooLargeToSign is returned. rnd defaults to
// crypto/rand.
func Sign(ctx context.Context, path string, key SigningKey, rnd io.Reader) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	if st.Size() > MaxSignSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLargeToSign, st.Size(), MaxSignSize)
	}
	if st.Size() < HeaderSize {
		return fmt.Errorf("%w: %s", ErrTruncated, path)
	}

	digest, err := regionDigest(ctx, f, key.Curve, st.Size())
	if err != nil {
		return err
	}
	sig, err := ec.SignDigest(rnd, key.D, digest, key.Curve)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	if !ec.VerifyDigest(digest, sig, key.Q, key.Curve) {
		return fmt.Errorf("%w: signature does not verify under the public key", ErrSignatureInvalid)
	}

	ref := make([]byte, SignerRefSize)
	copy(ref, key.Ref)

	var blocks keywrap.Blocks
	blocks.AppendSignature(sig.RBytes(), sig.SBytes(), ref)
	raw, err := blocks.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := f.WriteAt(raw, st.Size()); err != nil {
		return fmt.Errorf("write signature blocks: %w", err)
	}
	return nil
}

// Verify checks the signature recorded in fi against [SignedStart,
// fi.SignStart) of the envelope at path.
func Verify(ctx context.Context, path string, fi *FileInfo, c *ec.Curve, q *ec.Point) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if fi.SignStart < SignedStart {
		return fmt.Errorf("%w: signature start %d precedes the signed region", ErrSignatureInvalid, fi.SignStart)
	}
	digest, err := regionDigest(ctx, f, c, fi.SignStart)
	if err != nil {
		return err
	}
	if !ec.VerifyDigest(digest, ec.SignatureFromBytes(c, fi.R, fi.S), q, c) {
		return ErrSignatureInvalid
	}
	return nil
}

// regionDigest hashes [SignedStart, end) of r.
func regionDigest(ctx context.Context, r io.ReaderAt, c *ec.Curve, end int64) ([]byte, error) {
	h := ec.NewHash(c)
	src := &ctxReader{ctx: ctx, r: io.NewSectionReader(r, SignedStart, end-SignedStart)}
	n, err := io.Copy(h, src)
	if err != nil {
		return nil, fmt.Errorf("read signed region: %w", err)
	}
	if n != end-SignedStart {
		return nil, fmt.Errorf("%w: signed region is %d bytes, want %d", ErrTruncated, n, end-SignedStart)
	}
	return h.Sum(nil), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// PublicKeyHash digests a recipient public key for the public key hash
// block.
func PublicKeyHash(pub []byte) []byte {
	h := streebog.Sum256(pub)
	return h[:]
}
