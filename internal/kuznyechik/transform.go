package kuznyechik

var (
	// lsTable[i][v] is L(S(x)) for the block x holding v at byte i.
	lsTable [BlockSize][256]Block128
	// ilsTable[i][v] is L^-1(S^-1(x)) for the block x holding v at byte i.
	ilsTable [BlockSize][256]Block128
	// iterConst are the 32 key schedule constants C_i = L(i).
	iterConst [32]Block128
)

func init() {
	for i, v := range pi {
		piInv[v] = byte(i)
	}

	for i := 0; i < BlockSize; i++ {
		for v := 0; v < 256; v++ {
			var x [BlockSize]byte
			x[i] = pi[v]
			linear(&x)
			lsTable[i][v] = BlockFromArray(x)

			x = [BlockSize]byte{}
			x[i] = piInv[v]
			linearInverse(&x)
			ilsTable[i][v] = BlockFromArray(x)
		}
	}

	for i := range iterConst {
		var c [BlockSize]byte
		c[BlockSize-1] = byte(i + 1)
		linear(&c)
		iterConst[i] = BlockFromArray(c)
	}
}

// gfMul multiplies in GF(2^8) modulo x^8 + x^7 + x^6 + x + 1.
func gfMul(a, b byte) byte {
	var r byte
	for b != 0 {
		if b&1 != 0 {
			r ^= a
		}
		carry := a & 0x80
		a <<= 1
		if carry != 0 {
			a ^= 0xc3
		}
		b >>= 1
	}
	return r
}

// step applies one R transform: the linear form is pushed in at byte 0 and
// the remaining bytes move up one position.
func step(x *[BlockSize]byte) {
	var acc byte
	for i := 0; i < BlockSize; i++ {
		acc ^= gfMul(x[i], lCoeff[i])
	}
	copy(x[1:], x[:BlockSize-1])
	x[0] = acc
}

func stepInverse(x *[BlockSize]byte) {
	acc := x[0]
	copy(x[:BlockSize-1], x[1:])
	for i := 0; i < BlockSize-1; i++ {
		acc ^= gfMul(x[i], lCoeff[i])
	}
	x[BlockSize-1] = acc
}

func linear(x *[BlockSize]byte) {
	for i := 0; i < BlockSize; i++ {
		step(x)
	}
}

func linearInverse(x *[BlockSize]byte) {
	for i := 0; i < BlockSize; i++ {
		stepInverse(x)
	}
}

func substitute(x *[BlockSize]byte) {
	for i := range x {
		x[i] = pi[x[i]]
	}
}

func substituteInverse(x *[BlockSize]byte) {
	for i := range x {
		x[i] = piInv[x[i]]
	}
}

// ls is S followed by L, by table lookup.
func ls(b Block128) Block128 {
	var out Block128
	for i := 0; i < BlockSize; i++ {
		t := &lsTable[i][b.Byte(i)]
		out.Lo ^= t.Lo
		out.Hi ^= t.Hi
	}
	return out
}

// ils is S^-1 followed by L^-1, by table lookup.
func ils(b Block128) Block128 {
	var out Block128
	for i := 0; i < BlockSize; i++ {
		t := &ilsTable[i][b.Byte(i)]
		out.Lo ^= t.Lo
		out.Hi ^= t.Hi
	}
	return out
}

func sBlock(b Block128) Block128 {
	a := b.Array()
	substitute(&a)
	return BlockFromArray(a)
}

func sInvBlock(b Block128) Block128 {
	a := b.Array()
	substituteInverse(&a)
	return BlockFromArray(a)
}
