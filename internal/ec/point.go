package ec

import (
	"fmt"
	"math/big"

	"github.com/littlerose/cryptoroom/internal/bigint"
)

// Point is an affine curve point. A nil X marks the point at infinity.
// Points are not validated on construction; see Curve.IsOnCurve.
type Point struct {
	X     *big.Int
	Y     *big.Int
	Curve *Curve
}

// NewPoint returns the point (x, y) on c.
func NewPoint(c *Curve, x, y *big.Int) *Point {
	return &Point{X: x, Y: y, Curve: c}
}

// Infinity returns the identity element of c.
func Infinity(c *Curve) *Point {
	return &Point{Curve: c}
}

// IsInfinity reports whether p is the identity.
func (p *Point) IsInfinity() bool {
	return p.X == nil
}

// Equal reports whether p and q are the same point.
func (p *Point) Equal(q *Point) bool {
	if p.IsInfinity() || q.IsInfinity() {
		return p.IsInfinity() && q.IsInfinity()
	}
	return p.X.Cmp(q.X) == 0 && p.Y.Cmp(q.Y) == 0
}

func (p *Point) String() string {
	if p.IsInfinity() {
		return "(inf)"
	}
	return fmt.Sprintf("(%x, %x)", p.X, p.Y)
}

// Add returns p + q.
func Add(p, q *Point) *Point {
	if p.IsInfinity() {
		return q
	}
	if q.IsInfinity() {
		return p
	}

	c := p.Curve
	if p.X.Cmp(q.X) == 0 {
		if bigint.Mod(new(big.Int).Add(p.Y, q.Y), c.P).Sign() == 0 {
			return Infinity(c)
		}
		return Double(p)
	}

	dy := new(big.Int).Sub(q.Y, p.Y)
	dx := bigint.Mod(new(big.Int).Sub(q.X, p.X), c.P)
	inv := new(big.Int).ModInverse(dx, c.P)
	m := bigint.Mod(dy.Mul(dy, inv), c.P)
	return chord(c, m, p, q.X)
}

// Double returns 2p.
func Double(p *Point) *Point {
	if p.IsInfinity() || p.Y.Sign() == 0 {
		return Infinity(p.Curve)
	}

	c := p.Curve
	num := new(big.Int).Mul(p.X, p.X)
	num.Mul(num, big.NewInt(3))
	num.Add(num, c.A)
	den := bigint.Mod(new(big.Int).Lsh(p.Y, 1), c.P)
	inv := new(big.Int).ModInverse(den, c.P)
	m := bigint.Mod(num.Mul(num, inv), c.P)
	return chord(c, m, p, p.X)
}

// chord completes an addition with slope m through p and a point with
// abscissa qx.
func chord(c *Curve, m *big.Int, p *Point, qx *big.Int) *Point {
	x := new(big.Int).Mul(m, m)
	x.Sub(x, p.X)
	x.Sub(x, qx)
	x.Mod(x, c.P)

	y := new(big.Int).Sub(p.X, x)
	y.Mul(y, m)
	y.Sub(y, p.Y)
	y.Mod(y, c.P)

	return &Point{X: x, Y: y, Curve: c}
}

// Negate returns -p.
func Negate(p *Point) *Point {
	if p.IsInfinity() {
		return p
	}
	return &Point{X: new(big.Int).Set(p.X), Y: bigint.Mod(new(big.Int).Neg(p.Y), p.Curve.P), Curve: p.Curve}
}

// Multiply returns k*p by double-and-add, scanning k from its least
// significant bit. Not constant time.
func Multiply(k *big.Int, p *Point) *Point {
	if k.Sign() < 0 {
		return Multiply(new(big.Int).Neg(k), Negate(p))
	}

	acc := Infinity(p.Curve)
	base := p
	for i := 0; i < k.BitLen(); i++ {
		if k.Bit(i) == 1 {
			acc = Add(acc, base)
		}
		if i+1 < k.BitLen() {
			base = Double(base)
		}
	}
	return acc
}

// Decompress rebuilds a point from packed = parity byte || X. The parity of
// packed[0] selects between the two square roots of x^3 + ax + b.
func Decompress(c *Curve, packed []byte) (*Point, error) {
	if len(packed) < 2 {
		return nil, fmt.Errorf("%w: packed point too short", ErrInvalidPoint)
	}

	x := bigint.FromBytes(packed[1:])
	if x.Cmp(c.P) >= 0 {
		return nil, fmt.Errorf("%w: x outside the field", ErrInvalidPoint)
	}

	beta, err := sqrtMod(c.rhs(x), c.P, nil)
	if err != nil {
		return nil, err
	}

	y := beta
	if beta.Bit(0) != uint(packed[0]&1) {
		y = new(big.Int).Sub(c.P, beta)
		y.Mod(y, c.P)
	}
	return &Point{X: x, Y: y, Curve: c}, nil
}

// Compress packs p as 0x02|parity(Y) followed by X in ByteSize bytes.
func Compress(p *Point) []byte {
	out := make([]byte, 1, 1+p.Curve.ByteSize())
	out[0] = 0x02 | byte(p.Y.Bit(0))
	return append(out, bigint.FixedBytes(p.X, p.Curve.ByteSize())...)
}
