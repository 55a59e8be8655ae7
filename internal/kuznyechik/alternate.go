package kuznyechik

// polyModulus is x^8 + x^7 + x^6 + x + 1.
const polyModulus = 0x1c3

// Alternate is the byte-oriented Kuznyechik implementation. It computes S
// through the permutation table and L as sixteen R steps built from explicit
// polynomial multiplication, without lookup tables. Only the forward cipher
// is implemented.
type Alternate struct{}

var _ Algorithm = Alternate{}

// altConst are the key schedule constants, derived byte-wise at init.
var altConst [32][BlockSize]byte

func init() {
	for i := range altConst {
		altConst[i][BlockSize-1] = byte(i + 1)
		altLinear(&altConst[i])
	}
}

// Name returns "alternate".
func (Alternate) Name() string { return "alternate" }

// KeySize returns 32.
func (Alternate) KeySize() int { return KeySize }

// BlockSize returns 16.
func (Alternate) BlockSize() int { return BlockSize }

// EncryptKeys derives the round keys with four pairs of eight Feistel
// key derivation steps.
func (Alternate) EncryptKeys(key []byte) (*RoundKeys, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	var keys [RoundKeyCount][BlockSize]byte
	copy(keys[0][:], key[:BlockSize])
	copy(keys[1][:], key[BlockSize:])

	for pair := 0; pair < 4; pair++ {
		k1, k2 := &keys[2*pair+2], &keys[2*pair+3]
		*k1, *k2 = keys[2*pair], keys[2*pair+1]
		for i := 0; i < 8; i++ {
			altDerive(k1, k2, &altConst[pair*8+i])
		}
	}

	rk := &RoundKeys{direction: Encryption}
	for i := range keys {
		rk.keys[i] = BlockFromArray(keys[i])
	}
	return rk, nil
}

// DecryptKeys returns the encryption schedule; the variant has no inverse
// cipher, so both directions share one schedule.
func (a Alternate) DecryptKeys(key []byte) (*RoundKeys, error) {
	rk, err := a.EncryptKeys(key)
	if err != nil {
		return nil, err
	}
	rk.direction = Decryption
	return rk, nil
}

// Encrypt XORs key 0, then applies nine rounds of S, L and the next key.
func (Alternate) Encrypt(b Block128, rk *RoundKeys) Block128 {
	rk.mustBeKeyed()
	buf := b.Xor(rk.keys[0]).Array()
	for i := 1; i < RoundKeyCount; i++ {
		substitute(&buf)
		altLinear(&buf)
		k := rk.keys[i].Array()
		for j := range buf {
			buf[j] ^= k[j]
		}
	}
	return BlockFromArray(buf)
}

// Decrypt always fails with ErrDecryptNotSupported.
func (Alternate) Decrypt(_ Block128, rk *RoundKeys) (Block128, error) {
	rk.mustBeKeyed()
	return Block128{}, ErrDecryptNotSupported
}

// altDerive is one Feistel step: k1' = L(S(k1 ^ c)) ^ k2, k2' = k1.
func altDerive(k1, k2, c *[BlockSize]byte) {
	prev := *k1
	for i := range k1 {
		k1[i] ^= c[i]
	}
	substitute(k1)
	altLinear(k1)
	for i := range k1 {
		k1[i] ^= k2[i]
	}
	*k2 = prev
}

func altLinear(x *[BlockSize]byte) {
	for i := 0; i < BlockSize; i++ {
		var acc uint16
		for j := 0; j < BlockSize; j++ {
			acc ^= polyMul(uint16(x[j]), uint16(lCoeff[j]))
		}
		for j := BlockSize - 1; j > 0; j-- {
			x[j] = x[j-1]
		}
		x[0] = byte(acc)
	}
}

// polyMul multiplies two bytes as polynomials over GF(2) and reduces the
// 15-bit product modulo polyModulus.
func polyMul(lhs, rhs uint16) uint16 {
	var product uint16
	for bit := uint16(1); bit != 0x100; bit <<= 1 {
		if rhs&bit != 0 {
			product ^= lhs
		}
		lhs <<= 1
	}
	modulus := uint16(polyModulus << 7)
	for bit := uint16(0x8000); bit != 0x80; bit >>= 1 {
		if product&bit != 0 {
			product ^= modulus
		}
		modulus >>= 1
	}
	return product
}
