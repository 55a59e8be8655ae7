package ec

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/littlerose/cryptoroom/internal/bigint"
)

// sqrtAttempts bounds the search for a quadratic non-residue.
const sqrtAttempts = 128

// sqrtMod returns r with r^2 = a mod p for an odd prime p, using
// Tonelli-Shanks with a randomly drawn non-residue. rnd defaults to
// crypto/rand.
func sqrtMod(a, p *big.Int, rnd io.Reader) (*big.Int, error) {
	if rnd == nil {
		rnd = rand.Reader
	}

	a = bigint.Mod(a, p)
	if a.Sign() == 0 {
		return new(big.Int), nil
	}

	pMinus1 := new(big.Int).Sub(p, big.NewInt(1))
	if legendre(a, p).Cmp(pMinus1) == 0 {
		return nil, fmt.Errorf("%w: value is a non-residue", ErrSqrtNotFound)
	}

	// p - 1 = t * 2^s with t odd.
	s := 0
	t := new(big.Int).Set(pMinus1)
	for t.Bit(0) == 0 {
		t.Rsh(t, 1)
		s++
	}

	var b *big.Int
	for i := 0; i < sqrtAttempts; i++ {
		cand, err := bigint.RandomBelow(rnd, p)
		if err != nil {
			return nil, err
		}
		if legendre(cand, p).Cmp(pMinus1) == 0 {
			b = cand
			break
		}
	}
	if b == nil {
		return nil, fmt.Errorf("%w: no non-residue after %d draws", ErrSqrtNotFound, sqrtAttempts)
	}

	invA, err := bigint.ModInverse(a, p)
	if err != nil {
		return nil, err
	}

	c := bigint.ModPow(b, t, p)
	exp := new(big.Int).Add(t, big.NewInt(1))
	r := bigint.ModPow(a, exp.Rsh(exp, 1), p)

	for i := 1; i < s; i++ {
		e := new(big.Int).Lsh(big.NewInt(1), uint(s-i-1))
		d := new(big.Int).Mul(r, r)
		d.Mul(d, invA)
		d = bigint.ModPow(d, e, p)
		if d.Cmp(pMinus1) == 0 {
			r.Mul(r, c)
			r.Mod(r, p)
		}
		c = bigint.ModPow(c, big.NewInt(2), p)
	}

	if check := bigint.Mod(new(big.Int).Mul(r, r), p); check.Cmp(a) != 0 {
		return nil, fmt.Errorf("%w: root check failed", ErrSqrtNotFound)
	}
	return r, nil
}

// legendre returns a^((p-1)/2) mod p: 1 for residues, p-1 for non-residues.
func legendre(a, p *big.Int) *big.Int {
	e := new(big.Int).Sub(p, big.NewInt(1))
	return bigint.ModPow(a, e.Rsh(e, 1), p)
}
