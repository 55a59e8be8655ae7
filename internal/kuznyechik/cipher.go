package kuznyechik

import (
	"crypto/cipher"
	"fmt"
)

type blockCipher struct {
	alg Algorithm
	enc *RoundKeys
	dec *RoundKeys
}

// NewCipher returns a crypto/cipher Block for alg keyed with key. For
// algorithms without an inverse cipher, Decrypt panics with
// ErrDecryptNotSupported.
func NewCipher(alg Algorithm, key []byte) (cipher.Block, error) {
	enc, err := alg.EncryptKeys(key)
	if err != nil {
		return nil, err
	}
	dec, err := alg.DecryptKeys(key)
	if err != nil {
		return nil, err
	}
	return &blockCipher{alg: alg, enc: enc, dec: dec}, nil
}

func (c *blockCipher) BlockSize() int { return BlockSize }

func (c *blockCipher) Encrypt(dst, src []byte) {
	if len(src) < BlockSize || len(dst) < BlockSize {
		panic(fmt.Sprintf("kuznyechik: %v", ErrInvalidBlockSize))
	}
	c.alg.Encrypt(BlockFromBytes(src), c.enc).PutBytes(dst)
}

func (c *blockCipher) Decrypt(dst, src []byte) {
	if len(src) < BlockSize || len(dst) < BlockSize {
		panic(fmt.Sprintf("kuznyechik: %v", ErrInvalidBlockSize))
	}
	out, err := c.alg.Decrypt(BlockFromBytes(src), c.dec)
	if err != nil {
		panic(err)
	}
	out.PutBytes(dst)
}
