package streebog

import (
	"encoding/binary"
	"hash"
)

const (
	// BlockSize is the compression block size in bytes.
	BlockSize = 64
	// Size512 is the length of a 512-bit digest.
	Size512 = 64
	// Size256 is the length of a 256-bit digest.
	Size256 = 32

	rounds = 12
)

type block [BlockSize]byte

// lTable[k][v] is the L contribution of byte value v at position k of an
// 8-byte row.
var lTable [8][256]uint64

func init() {
	for k := 0; k < 8; k++ {
		for v := 0; v < 256; v++ {
			var acc uint64
			for j := 0; j < 8; j++ {
				if v&(0x80>>j) != 0 {
					acc ^= matA[k*8+j]
				}
			}
			lTable[k][v] = acc
		}
	}
}

func xor(a, b *block) block {
	var out block
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// lps applies S, then the byte transposition P, then L.
func lps(d *block) block {
	var t block
	for i := range t {
		t[i] = sbox[d[tau[i]]]
	}

	var out block
	for i := 0; i < 8; i++ {
		var v uint64
		for k := 0; k < 8; k++ {
			v ^= lTable[k][t[i*8+k]]
		}
		binary.BigEndian.PutUint64(out[i*8:], v)
	}
	return out
}

// encrypt is the twelve round E(K, m) block transform.
func encrypt(k, m *block) block {
	st := xor(m, k)
	key := *k
	for i := 0; i < rounds; i++ {
		st = lps(&st)
		c := block(iterC[i])
		next := xor(&key, &c)
		key = lps(&next)
		st = xor(&st, &key)
	}
	return st
}

// compress is g_N(h, m) = E(LPS(h ^ N), m) ^ h ^ m.
func compress(n, h, m *block) block {
	x := xor(n, h)
	k := lps(&x)
	out := encrypt(&k, m)
	out = xor(&out, h)
	return xor(&out, m)
}

// add512 sets a = a + b mod 2^512, both big-endian.
func add512(a, b *block) {
	var carry uint16
	for i := BlockSize - 1; i >= 0; i-- {
		carry += uint16(a[i]) + uint16(b[i])
		a[i] = byte(carry)
		carry >>= 8
	}
}

func sum(iv byte, msg []byte) block {
	var h, n, sigma block
	for i := range h {
		h[i] = iv
	}

	var stride block
	binary.BigEndian.PutUint16(stride[BlockSize-2:], BlockSize*8)

	l := len(msg)
	for l >= BlockSize {
		var m block
		copy(m[:], msg[l-BlockSize:l])
		h = compress(&n, &h, &m)
		add512(&n, &stride)
		add512(&sigma, &m)
		l -= BlockSize
	}

	var m block
	copy(m[BlockSize-l:], msg[:l])
	m[BlockSize-1-l] |= 1
	h = compress(&n, &h, &m)

	var bits block
	binary.BigEndian.PutUint64(bits[BlockSize-8:], uint64(l)*8)
	add512(&n, &bits)
	add512(&sigma, &m)

	var zero block
	h = compress(&zero, &h, &n)
	return compress(&zero, &h, &sigma)
}

// Sum512 returns the 512-bit digest of msg.
func Sum512(msg []byte) [Size512]byte {
	return sum(0x00, msg)
}

// Sum256 returns the 256-bit digest of msg: the leading half of the
// chain started from an all-0x01 IV.
func Sum256(msg []byte) [Size256]byte {
	h := sum(0x01, msg)
	var out [Size256]byte
	copy(out[:], h[:Size256])
	return out
}

// digest buffers the whole message because compression runs from the end
// of the input towards the start.
type digest struct {
	size int
	buf  []byte
}

// New512 returns a hash.Hash computing the 512-bit digest.
func New512() hash.Hash {
	return &digest{size: Size512}
}

// New256 returns a hash.Hash computing the 256-bit digest.
func New256() hash.Hash {
	return &digest{size: Size256}
}

func (d *digest) Write(p []byte) (int, error) {
	d.buf = append(d.buf, p...)
	return len(p), nil
}

func (d *digest) Sum(b []byte) []byte {
	if d.size == Size256 {
		h := Sum256(d.buf)
		return append(b, h[:]...)
	}
	h := Sum512(d.buf)
	return append(b, h[:]...)
}

func (d *digest) Reset()         { d.buf = d.buf[:0] }
func (d *digest) Size() int      { return d.size }
func (d *digest) BlockSize() int { return BlockSize }
