package ec

import (
	"crypto/rand"
	"fmt"
	"hash"
	"io"
	"math/big"

	"github.com/littlerose/cryptoroom/internal/bigint"
	"github.com/littlerose/cryptoroom/internal/streebog"
)

// privateKeySeedSize caps the number of random bytes drawn per private key
// candidate.
const privateKeySeedSize = 64

// Signature is an (r, s) pair together with the bit length of the group
// order it was produced for.
type Signature struct {
	R    *big.Int
	S    *big.Int
	Bits int
}

// RBytes returns r big-endian, left-padded to an even length.
func (s *Signature) RBytes() []byte { return bigint.Bytes(s.R) }

// SBytes returns s big-endian, left-padded to an even length.
func (s *Signature) SBytes() []byte { return bigint.Bytes(s.S) }

// VectorR returns r as lowercase hex of Bits/4 digits.
func (s *Signature) VectorR() string { return bigint.Hex(s.R, s.Bits/4) }

// VectorS returns s as lowercase hex of Bits/4 digits.
func (s *Signature) VectorS() string { return bigint.Hex(s.S, s.Bits/4) }

// SignatureFromBytes rebuilds a signature from big-endian r and s.
func SignatureFromBytes(c *Curve, r, s []byte) *Signature {
	return &Signature{R: bigint.FromBytes(r), S: bigint.FromBytes(s), Bits: c.N.BitLen()}
}

// Digest hashes msg with the Streebog width matching the curve order:
// 256 bits below 500-bit orders, 512 bits otherwise.
func Digest(c *Curve, msg []byte) []byte {
	if c.N.BitLen() < 500 {
		h := streebog.Sum256(msg)
		return h[:]
	}
	h := streebog.Sum512(msg)
	return h[:]
}

// NewHash returns a streaming hash of the width Digest uses for c.
func NewHash(c *Curve) hash.Hash {
	if c.N.BitLen() < 500 {
		return streebog.New256()
	}
	return streebog.New512()
}

// digestScalar maps a digest to e = h mod n, substituting 1 for 0.
func digestScalar(c *Curve, digest []byte) *big.Int {
	e := bigint.Mod(bigint.FromBytes(digest), c.N)
	if e.Sign() == 0 {
		e.SetInt64(1)
	}
	return e
}

// Sign produces a signature of msg with private key d. rnd defaults to
// crypto/rand.
func Sign(rnd io.Reader, d *big.Int, msg []byte, c *Curve) (*Signature, error) {
	return SignDigest(rnd, d, Digest(c, msg), c)
}

// SignDigest signs a precomputed Digest.
func SignDigest(rnd io.Reader, d *big.Int, digest []byte, c *Curve) (*Signature, error) {
	if d.Sign() == 0 {
		return nil, ErrZeroPrivateKey
	}
	if rnd == nil {
		rnd = rand.Reader
	}

	e := digestScalar(c, digest)
	for {
		k, err := bigint.RandomBelow(rnd, c.N)
		if err != nil {
			return nil, fmt.Errorf("draw nonce: %w", err)
		}
		if sig := signWithNonce(c, d, e, k); sig != nil {
			return sig, nil
		}
	}
}

// signWithNonce computes r = (kG).x mod n and s = (rd + ke) mod n. It
// returns nil when either component is zero.
func signWithNonce(c *Curve, d, e, k *big.Int) *Signature {
	pt := Multiply(k, c.Generator())
	if pt.IsInfinity() {
		return nil
	}
	r := bigint.Mod(pt.X, c.N)
	if r.Sign() == 0 {
		return nil
	}

	s := new(big.Int).Mul(r, d)
	ke := new(big.Int).Mul(k, e)
	s.Add(s, ke)
	s.Mod(s, c.N)
	if s.Sign() == 0 {
		return nil
	}
	return &Signature{R: r, S: s, Bits: c.N.BitLen()}
}

// Verify checks sig over msg against public key q.
func Verify(msg []byte, sig *Signature, q *Point, c *Curve) bool {
	return VerifyDigest(Digest(c, msg), sig, q, c)
}

// VerifyDigest checks sig over a precomputed Digest.
func VerifyDigest(digest []byte, sig *Signature, q *Point, c *Curve) bool {
	if sig == nil || sig.R == nil || sig.S == nil || q == nil || q.IsInfinity() {
		return false
	}
	if !bigint.InRange(sig.R, c.N) || !bigint.InRange(sig.S, c.N) {
		return false
	}

	e := digestScalar(c, digest)
	v, err := bigint.ModInverse(e, c.N)
	if err != nil {
		return false
	}

	z1 := bigint.Mod(new(big.Int).Mul(sig.S, v), c.N)
	rv := bigint.Mod(new(big.Int).Mul(sig.R, v), c.N)
	z2 := new(big.Int).Sub(c.N, rv)
	z2.Mod(z2, c.N)
	if z1.Sign() <= 0 || z2.Sign() <= 0 {
		return false
	}

	pt := Add(Multiply(z1, c.Generator()), Multiply(z2, q))
	if pt.IsInfinity() {
		return false
	}
	return bigint.Mod(pt.X, c.N).Cmp(sig.R) == 0
}

// GenerateKey draws a private key 0 < d < n by rejection sampling seeds of
// up to 64 bytes and returns it with the public point Q = dG. rnd defaults
// to crypto/rand.
func GenerateKey(rnd io.Reader, c *Curve) (*big.Int, *Point, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	size := min(privateKeySeedSize, (c.N.BitLen()+7)/8)
	for {
		d, err := bigint.Random(rnd, size)
		if err != nil {
			return nil, nil, err
		}
		if bigint.InRange(d, c.N) {
			return d, PublicKey(c, d), nil
		}
	}
}

// PublicKey returns dG.
func PublicKey(c *Curve, d *big.Int) *Point {
	return Multiply(d, c.Generator())
}
