// Package bigint collects the math/big helpers shared by the curve and
// signature code: parsing of curve constants, big-endian marshalling and
// modular reductions that never return negative values.
package bigint

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

var (
	// ErrNotInvertible is returned when a value has no modular inverse.
	ErrNotInvertible = errors.New("value is not invertible")

	// ErrParse is returned for malformed numeric strings.
	ErrParse = errors.New("malformed integer")
)

var (
	zero = big.NewInt(0)
	one  = big.NewInt(1)
)

// Parse reads a curve constant. Strings containing a minus sign are decimal,
// everything else is hexadecimal with an optional 0x prefix.
func Parse(s string) (*big.Int, error) {
	base := 16
	if strings.Contains(s, "-") {
		base = 10
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrParse, s)
	}
	return v, nil
}

// MustParse is Parse for package-level constants. It panics on error.
func MustParse(s string) *big.Int {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FromBytes interprets b as an unsigned big-endian integer.
func FromBytes(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// Bytes returns the big-endian magnitude of x left-padded with one zero byte
// when its length is odd.
func Bytes(x *big.Int) []byte {
	return PadLeftEven(x.Bytes())
}

// PadLeftEven prepends a zero byte to b when len(b) is odd.
func PadLeftEven(b []byte) []byte {
	if len(b)%2 == 0 {
		return b
	}
	out := make([]byte, len(b)+1)
	copy(out[1:], b)
	return out
}

// FixedBytes returns x as exactly size big-endian bytes. Larger values are
// truncated to their low-order bytes.
func FixedBytes(x *big.Int, size int) []byte {
	out := make([]byte, size)
	b := x.Bytes()
	if len(b) > size {
		b = b[len(b)-size:]
	}
	copy(out[size-len(b):], b)
	return out
}

// Hex returns x as lowercase hex left-padded with zeros to width digits.
func Hex(x *big.Int, width int) string {
	s := x.Text(16)
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s
}

// Mod returns x mod m in [0, m).
func Mod(x, m *big.Int) *big.Int {
	return new(big.Int).Mod(x, m)
}

// ModInverse returns a^-1 mod m.
func ModInverse(a, m *big.Int) (*big.Int, error) {
	r := new(big.Int).ModInverse(Mod(a, m), m)
	if r == nil {
		return nil, fmt.Errorf("%w: modulus %s", ErrNotInvertible, m.Text(16))
	}
	return r, nil
}

// ModPow returns b^e mod m for e >= 0.
func ModPow(b, e, m *big.Int) *big.Int {
	return new(big.Int).Exp(Mod(b, m), e, m)
}

// IsZero reports whether x == 0.
func IsZero(x *big.Int) bool {
	return x.Sign() == 0
}

// InRange reports whether 0 < x < n.
func InRange(x, n *big.Int) bool {
	return x.Cmp(zero) > 0 && x.Cmp(n) < 0
}

// Random reads size bytes from r and returns them as a big-endian integer.
func Random(r io.Reader, size int) (*big.Int, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return FromBytes(buf), nil
}

// RandomBelow returns a uniformly drawn value in [1, n).
func RandomBelow(r io.Reader, n *big.Int) (*big.Int, error) {
	size := (n.BitLen() + 7) / 8
	for {
		v, err := Random(r, size)
		if err != nil {
			return nil, err
		}
		if InRange(v, n) {
			return v, nil
		}
	}
}

// One returns a fresh 1.
func One() *big.Int {
	return new(big.Int).Set(one)
}
