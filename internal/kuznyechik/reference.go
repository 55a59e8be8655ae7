package kuznyechik

// Reference is the table-driven Kuznyechik implementation.
type Reference struct{}

var _ Algorithm = Reference{}

// Name returns "reference".
func (Reference) Name() string { return "reference" }

// KeySize returns 32.
func (Reference) KeySize() int { return KeySize }

// BlockSize returns 16.
func (Reference) BlockSize() int { return BlockSize }

// EncryptKeys runs the Feistel key schedule: four iterations of eight rounds,
// each round keyed by one of the 32 iteration constants.
func (Reference) EncryptKeys(key []byte) (*RoundKeys, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	rk := &RoundKeys{direction: Encryption}
	rk.keys[0] = BlockFromBytes(key[0:16])
	rk.keys[1] = BlockFromBytes(key[16:32])

	c := 0
	for n := 2; n < RoundKeyCount; n += 2 {
		left, right := rk.keys[n-2], rk.keys[n-1]
		for i := 0; i < 8; i++ {
			left, right = ls(left.Xor(iterConst[c])).Xor(right), left
			c++
		}
		rk.keys[n], rk.keys[n+1] = left, right
	}
	return rk, nil
}

// DecryptKeys derives the encryption schedule and maps keys 1..8 through
// L^-1 so the inverse rounds can use the ils tables directly. Keys 0 and 9
// are used unchanged.
func (r Reference) DecryptKeys(key []byte) (*RoundKeys, error) {
	rk, err := r.EncryptKeys(key)
	if err != nil {
		return nil, err
	}
	for i := 1; i < RoundKeyCount-1; i++ {
		rk.keys[i] = ils(sBlock(rk.keys[i]))
	}
	rk.direction = Decryption
	return rk, nil
}

// Encrypt runs nine (X, LS) rounds and a final key XOR.
func (Reference) Encrypt(b Block128, rk *RoundKeys) Block128 {
	rk.mustBeKeyed()
	for i := 0; i < RoundKeyCount-1; i++ {
		b = ls(b.Xor(rk.keys[i]))
	}
	return b.Xor(rk.keys[RoundKeyCount-1])
}

// Decrypt inverts Encrypt using a decryption schedule.
func (Reference) Decrypt(b Block128, rk *RoundKeys) (Block128, error) {
	rk.mustBeKeyed()
	b = b.Xor(rk.keys[9])
	b = ils(sBlock(b))
	for i := 8; i > 0; i-- {
		b = ils(b).Xor(rk.keys[i])
	}
	b = sInvBlock(b)
	return b.Xor(rk.keys[0]), nil
}
