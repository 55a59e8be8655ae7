package ec

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/littlerose/cryptoroom/internal/bigint"
)

// Curve is a named parameter set for y^2 = x^3 + ax + b over GF(P) with a
// base point (Gx, Gy) of order N.
type Curve struct {
	Name string
	OID  string
	P    *big.Int
	A    *big.Int
	B    *big.Int
	Gx   *big.Int
	Gy   *big.Int
	N    *big.Int
	H    *big.Int
}

// OID values of the named parameter sets.
const (
	OIDParamSetA = "1.2.643.7.1.2.1.2.1"
	OIDParamSetB = "1.2.643.7.1.2.1.2.2"
	OIDECC192    = "ECC-192"
)

type curveParams struct {
	name, oid, p, a, b, gx, gy, n, h string
}

func newCurve(cp curveParams) *Curve {
	return &Curve{
		Name: cp.name,
		OID:  cp.oid,
		P:    bigint.MustParse(cp.p),
		A:    bigint.MustParse(cp.a),
		B:    bigint.MustParse(cp.b),
		Gx:   bigint.MustParse(cp.gx),
		Gy:   bigint.MustParse(cp.gy),
		N:    bigint.MustParse(cp.n),
		H:    bigint.MustParse(cp.h),
	}
}

var (
	// Secp384r1 is the SEC 2 P-384 curve.
	Secp384r1 = newCurve(curveParams{
		name: "secp384r1",
		p:    "fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffeffffffff0000000000000000ffffffff",
		a:    "fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffeffffffff0000000000000000fffffffc",
		b:    "b3312fa7e23ee7e4988e056be3f82d19181d9c6efe8141120314088f5013875ac656398d8a2ed19d2a85c8edd3ec2aef",
		gx:   "aa87ca22be8b05378eb1c71ef320ad746e1d3b628ba79b9859f741e082542a385502f25dbf55296c3a545e3872760ab7",
		gy:   "3617de4a96262c6f5d9e98bf9292dc29f8f41dbd289a147ce9da3113b5f0b8c00a60b1ce1d7e819d7a431d7c90ea0e5f",
		n:    "ffffffffffffffffffffffffffffffffffffffffffffffffc7634d81f4372ddf581a0db248b0a77aecec196accc52973",
		h:    "1",
	})

	// TestGost256 is the example curve of GOST R 34.10-2012 appendix A.1.
	TestGost256 = newCurve(curveParams{
		name: "test_gost3411_256",
		p:    "8000000000000000000000000000000000000000000000000000000000000431",
		a:    "7",
		b:    "5fbff498aa938ce739b8e022fbafef40563f6e6a3472fc2a514c0ce9dae23b7e",
		gx:   "2",
		gy:   "8e2a8a0e65147d4bd6316030e16d19c85c97f0a9ca267122b96abbcea7e8fc8",
		n:    "8000000000000000000000000000000150fe8a1892976154c59cfc193accf5b3",
		h:    "1",
	})

	// TestGost512 is the example curve of GOST R 34.10-2012 appendix A.2.
	TestGost512 = newCurve(curveParams{
		name: "test_gost3411_512",
		p:    "4531acd1fe0023c7550d267b6b2fee80922b14b2ffb90f04d4eb7c09b5d2d15df1d852741af4704a0458047e80e4546d35b8336fac224dd81664bbf528be6373",
		a:    "7",
		b:    "1cff0806a31116da29d8cfa54e57eb748bc5f377e49400fdd788b649eca1ac4361834013b2ad7322480a89ca58e0cf74bc9e540c2add6897fad0a3084f302adc",
		gx:   "24d19cc64572ee30f396bf6ebbfd7a6c5213b3b3d7057cc825f91093a68cd762fd60611262cd838dc6b60aa7eee804e28bc849977fac33b4b530f1b120248a9a",
		gy:   "2bb312a43bd2ce6e0d020613c857acddcfbf061e91e5f2c3f32447c259f39b2c83ab156d77f1496bf7eb3351e1ee4e43dc1a18b91b24640b6dbb92cb1add371e",
		n:    "4531acd1fe0023c7550d267b6b2fee80922b14b2ffb90f04d4eb7c09b5d2d15da82f2d7ecb1dbac719905c5eecc423f1d86e25edbe23c595d644aaf187e6e6df",
		h:    "1",
	})

	// ParamSetA is id-tc26-gost-3410-12-512-paramSetA.
	ParamSetA = newCurve(curveParams{
		name: "gost-3410-12-512-paramSetA",
		oid:  OIDParamSetA,
		p:    "fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffdc7",
		a:    "fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffdc4",
		b:    "e8c2505dedfc86ddc1bd0b2b6667f1da34b82574761cb0e879bd081cfd0b6265ee3cb090f30d27614cb4574010da90dd862ef9d4ebee4761503190785a71c760",
		gx:   "3",
		gy:   "7503cfe87a836ae3a61b8816e25450e6ce5e1c93acf1abc1778064fdcbefa921df1626be4fd036e93d75e6a50e3a41e98028fe5fc235f5b889a589cb5215f2a4",
		n:    "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff27e69532f48d89116ff22b8d4e0560609b4b38abfad2b85dcacdb1411f10b275",
		h:    "1",
	})

	// ParamSetB is id-tc26-gost-3410-12-512-paramSetB, the curve used for
	// user signing keys.
	ParamSetB = newCurve(curveParams{
		name: "gost-3410-12-512-paramSetB",
		oid:  OIDParamSetB,
		p:    "008000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000006F",
		a:    "008000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000006C",
		b:    "687D1B459DC841457E3E06CF6F5E2517B97C7D614AF138BCBF85DC806C4B289F3E965D2DB1416D217F8B276FAD1AB69C50F78BEE1FA3106EFB8CCBC7C5140116",
		gx:   "2",
		gy:   "1A8F7EDA389B094C2C071E3647A8940F3C123B697578C213BE6DD9E6C8EC7335DCB228FD1EDF4A39152CBCAAF8C0398828041055F94CEEEC7E21340780FE41BD",
		n:    "00800000000000000000000000000000000000000000000000000000000000000149A1EC142565A545ACFDB77BD9D40CFA8B996712101BEA0EC6346C54374F25BD",
		h:    "1",
	})

	// ECC192 is the NIST P-192 curve, used by the self tests.
	ECC192 = newCurve(curveParams{
		name: "ECC-192",
		oid:  OIDECC192,
		p:    "FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFFFFFFFFFFFFF",
		a:    "-3",
		b:    "64210519e59c80e70fa7e9ab72243049feb8deecc146b9b1",
		gx:   "188DA80EB03090F67CBF20EB43A18800F4FF0AFD82FF1012",
		gy:   "7192B95FFC8DA78631011ED6B24CDD573F977A11E794811",
		n:    "FFFFFFFFFFFFFFFFFFFFFFFF99DEF836146BC9B1B4D22831",
		h:    "1",
	})
)

var curves = []*Curve{Secp384r1, TestGost256, TestGost512, ParamSetA, ParamSetB, ECC192}

// Curves returns all named curves.
func Curves() []*Curve {
	return append([]*Curve(nil), curves...)
}

// ByOID finds a curve by object identifier. Curves without an OID can only
// be found by name.
func ByOID(oid string) (*Curve, error) {
	if oid != "" {
		for _, c := range curves {
			if c.OID == oid {
				return c, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: oid %q", ErrUnknownCurve, oid)
}

// ByName finds a curve by name, ignoring case.
func ByName(name string) (*Curve, error) {
	for _, c := range curves {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCurve, name)
}

// Generator returns the base point.
func (c *Curve) Generator() *Point {
	return &Point{X: new(big.Int).Set(c.Gx), Y: new(big.Int).Set(c.Gy), Curve: c}
}

// ByteSize is the length of a field element in bytes.
func (c *Curve) ByteSize() int {
	return (c.P.BitLen() + 7) / 8
}

// IsOnCurve reports whether p satisfies the curve equation. The point at
// infinity is on every curve.
func (c *Curve) IsOnCurve(p *Point) bool {
	if p.IsInfinity() {
		return true
	}
	if p.X.Sign() < 0 || p.X.Cmp(c.P) >= 0 || p.Y.Sign() < 0 || p.Y.Cmp(c.P) >= 0 {
		return false
	}
	lhs := bigint.Mod(new(big.Int).Mul(p.Y, p.Y), c.P)
	return lhs.Cmp(c.rhs(p.X)) == 0
}

// rhs returns x^3 + ax + b mod P.
func (c *Curve) rhs(x *big.Int) *big.Int {
	v := new(big.Int).Mul(x, x)
	v.Mul(v, x)
	ax := new(big.Int).Mul(c.A, x)
	v.Add(v, ax)
	v.Add(v, c.B)
	return v.Mod(v, c.P)
}

func (c *Curve) String() string {
	return c.Name
}
