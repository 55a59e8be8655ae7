package mode

import (
	"fmt"

	"github.com/littlerose/cryptoroom/internal/kuznyechik"
)

// CFB is the cipher feedback mode with a one-block register. Both
// directions run the forward cipher, so it works with algorithms that have
// no inverse.
type CFB struct {
	alg kuznyechik.Algorithm
}

// NewCFB returns a CFB mode over alg.
func NewCFB(alg kuznyechik.Algorithm) *CFB {
	return &CFB{alg: alg}
}

// Encrypt enciphers buf in place. A partial final block is zero-extended
// for the XOR and only its valid bytes are written back.
func (m *CFB) Encrypt(buf, iv []byte, rk *kuznyechik.RoundKeys) error {
	return m.xorKeyStream(buf, iv, rk, true)
}

// Decrypt deciphers buf in place.
func (m *CFB) Decrypt(buf, iv []byte, rk *kuznyechik.RoundKeys) error {
	return m.xorKeyStream(buf, iv, rk, false)
}

func (m *CFB) xorKeyStream(buf, iv []byte, rk *kuznyechik.RoundKeys, encrypt bool) error {
	const bs = kuznyechik.BlockSize

	if len(iv) != bs {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidIV, len(iv), bs)
	}

	feedback := kuznyechik.BlockFromBytes(iv)
	var tmp [bs]byte
	for off := 0; off < len(buf); off += bs {
		end := min(off+bs, len(buf))

		tmp = [bs]byte{}
		copy(tmp[:], buf[off:end])
		in := kuznyechik.BlockFromArray(tmp)

		out := m.alg.Encrypt(feedback, rk).Xor(in)
		if encrypt {
			feedback = out
		} else {
			feedback = in
		}

		tmp = out.Array()
		copy(buf[off:end], tmp[:end-off])
	}
	return nil
}
