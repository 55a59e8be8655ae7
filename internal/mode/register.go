package mode

import "github.com/littlerose/cryptoroom/internal/kuznyechik"

// RegisterSize is the CBC feedback register (and IV) size in bytes.
const RegisterSize = 2 * kuznyechik.BlockSize

// register is the m = 2n feedback register. lsb feeds the next block, msb
// holds the most recent ciphertext.
type register struct {
	lsb kuznyechik.Block128
	msb kuznyechik.Block128
}

func newRegister(iv []byte) register {
	return register{
		lsb: kuznyechik.BlockFromBytes(iv[:kuznyechik.BlockSize]),
		msb: kuznyechik.BlockFromBytes(iv[kuznyechik.BlockSize:RegisterSize]),
	}
}

func (r *register) shift(c kuznyechik.Block128) {
	r.lsb = r.msb
	r.msb = c
}

// encrypt runs one forward chaining step.
func (r *register) encrypt(alg kuznyechik.Algorithm, rk *kuznyechik.RoundKeys, p kuznyechik.Block128) kuznyechik.Block128 {
	c := alg.Encrypt(p.Xor(r.lsb), rk)
	r.shift(c)
	return c
}

// decrypt runs one inverse chaining step.
func (r *register) decrypt(alg kuznyechik.Algorithm, rk *kuznyechik.RoundKeys, c kuznyechik.Block128) (kuznyechik.Block128, error) {
	d, err := alg.Decrypt(c, rk)
	if err != nil {
		return kuznyechik.Block128{}, err
	}
	p := d.Xor(r.lsb)
	r.shift(c)
	return p, nil
}

// pad applies padding procedure 2 to a block holding tail valid bytes.
func pad(buf []byte, tail int) {
	buf[tail] = 0x01
	for i := tail + 1; i < len(buf); i++ {
		buf[i] = 0
	}
}

// SealedLength returns the size of the CBC body plus the trailing IV for a
// plaintext of n bytes: one length block, the padded data and RegisterSize.
func SealedLength(n uint64) uint64 {
	const bs = kuznyechik.BlockSize
	if n%bs == 0 {
		return n + bs + RegisterSize
	}
	return n - n%bs + 2*bs + RegisterSize
}
