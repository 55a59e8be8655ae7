package streebog

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"testing"
)

func mustHex(t testing.TB, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func rangeBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

var vectors = []struct {
	name    string
	msg     func(t testing.TB) []byte
	want512 string
	want256 string
}{
	{
		name:    "empty",
		msg:     func(testing.TB) []byte { return nil },
		want512: "8a1a1c4cbf909f8ecb81cd1b5c713abad26a4cac2a5fda3ce86e352855712f36a7f0be98eb6cf51553b507b73a87e97946aebc29859255049f86aa09a25d948e",
		want256: "bbe19c8d2025d99f943a932a0b365a822aa36a4c479d22cc02c8973e219a533f",
	},
	{
		name: "M1 63 bytes",
		msg: func(t testing.TB) []byte {
			return mustHex(t, "323130393837363534333231303938373635343332313039383736353433323130393837363534333231303938373635343332313039383736353433323130")
		},
		want512: "486f64c1917879417fef082b3381a4e211c324f074654c38823a7b76f830ad00fa1fbae42b1285c0352f227524bc9ab16254288dd6863dccd5b9f54a1ad0541b",
		want256: "00557be5e584fd52a449b16b0251d05d27f94ab76cbaa6da890b59d8ef1e159d",
	},
	{
		name: "M2 72 bytes",
		msg: func(t testing.TB) []byte {
			return mustHex(t, "fbe2e5f0eee3c820fbeafaebef20fffbf0e1e0f0f520e0ed20e8ece0ebe5f0f2f120fff0eeec20f120faf2fee5e2202ce8f6f3ede220e8e6eee1e8f0f2d1202ce8f0f2e5e220e5d1")
		},
		want512: "28fbc9bada033b1460642bdcddb90c3fb3e56c497ccd0f62b8a2ad4935e85f037613966de4ee00531ae60f3b5a47f8dae06915d5f2f194996fcabf2622e6881e",
		want256: "508f7e553c06501d749a66fc28c6cac0b005746d97537fa85d9e40904efed29d",
	},
	{
		name:    "one full block",
		msg:     func(testing.TB) []byte { return rangeBytes(64) },
		want512: "fb4180219f507b8f4bf55ebf964e3cfd8062aa8723c1b8783c5469b61ee9d4e6c5c2fb9d784c66f3aaaa07b1266b70748e6d907756281c7d28391b837b7ce0b9",
		want256: "0d728d9c3b6ed1792287d8afb8e4c0409bd01f74a289da2ad7bb19d66f038f64",
	},
	{
		name:    "two full blocks",
		msg:     func(testing.TB) []byte { return bytes.Repeat([]byte{'a'}, 128) },
		want512: "0f28477b0897d1f27678618696ad6eba974ae67c64d2bffe1256d12835a2c4820a842f830d122f8ff491438f752c32695a5c914ac53c3896575e9b41271e7424",
		want256: "1f9840f3e38a2ce86ed23e507a50be99e7383b23bcc61d063c0259f9f5ed8dcb",
	},
	{
		name:    "block plus one",
		msg:     func(testing.TB) []byte { return append(rangeBytes(64), 'x') },
		want512: "36d57e9a86ba5c3eca193a52a22ab73efae51425f36a2dbc28b3fd1c193b434bcae95ab97aa6c8744806499d6cfae9648a2206bf35181606af74324ec40ea7b9",
		want256: "2c12c5e72a5a927fe7e147b909a0699369ef96261e29c1c8f06b5c5042091c15",
	},
}

func TestSum512(t *testing.T) {
	for _, tt := range vectors {
		t.Run(tt.name, func(t *testing.T) {
			got := Sum512(tt.msg(t))
			if h := hex.EncodeToString(got[:]); h != tt.want512 {
				t.Errorf("Sum512() = %s, want %s", h, tt.want512)
			}
		})
	}
}

func TestSum256(t *testing.T) {
	for _, tt := range vectors {
		t.Run(tt.name, func(t *testing.T) {
			got := Sum256(tt.msg(t))
			if h := hex.EncodeToString(got[:]); h != tt.want256 {
				t.Errorf("Sum256() = %s, want %s", h, tt.want256)
			}
		})
	}
}

func TestDigest_Incremental(t *testing.T) {
	msg := rangeBytes(200)
	for _, tt := range []struct {
		size int
		want []byte
	}{
		{Size256, func() []byte { h := Sum256(msg); return h[:] }()},
		{Size512, func() []byte { h := Sum512(msg); return h[:] }()},
	} {
		t.Run(fmt.Sprint(tt.size*8), func(t *testing.T) {
			d := New512()
			if tt.size == Size256 {
				d = New256()
			}
			if d.Size() != tt.size || d.BlockSize() != BlockSize {
				t.Fatalf("Size() = %d BlockSize() = %d", d.Size(), d.BlockSize())
			}

			for i := 0; i < len(msg); i += 7 {
				end := min(i+7, len(msg))
				if _, err := d.Write(msg[i:end]); err != nil {
					t.Fatal(err)
				}
			}
			prefix := []byte{0xaa}
			got := d.Sum(prefix)
			if !bytes.Equal(got[1:], tt.want) || got[0] != 0xaa {
				t.Errorf("Sum() = %x, want aa%x", got, tt.want)
			}

			d.Reset()
			d.Write(msg)
			if got := d.Sum(nil); !bytes.Equal(got, tt.want) {
				t.Errorf("Sum() after Reset = %x, want %x", got, tt.want)
			}
		})
	}
}

func TestAdd512_Carry(t *testing.T) {
	var a, b block
	for i := range a {
		a[i] = 0xff
	}
	b[BlockSize-1] = 1
	add512(&a, &b)
	if a != (block{}) {
		t.Errorf("add512 overflow = %x, want zero", a)
	}
}

func ExampleSum256() {
	h := Sum256(nil)
	fmt.Printf("%x\n", h)
	// Output: bbe19c8d2025d99f943a932a0b365a822aa36a4c479d22cc02c8973e219a533f
}

func BenchmarkSum512(b *testing.B) {
	msg := rangeBytes(4096)
	b.SetBytes(int64(len(msg)))
	for i := 0; i < b.N; i++ {
		Sum512(msg)
	}
}
