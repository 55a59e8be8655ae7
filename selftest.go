package cryptoroom

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/littlerose/cryptoroom/internal/bigint"
	"github.com/littlerose/cryptoroom/internal/ec"
	"github.com/littlerose/cryptoroom/internal/kuznyechik"
	"github.com/littlerose/cryptoroom/internal/mode"
	"github.com/littlerose/cryptoroom/internal/streebog"
)

// Check is one known-answer self test.
type Check struct {
	Name string
	Run  func() error
}

// Checks returns the built-in self tests in the order SelfTest runs them.
func Checks() []Check {
	return []Check{
		{"kuznyechik-reference", checkReference},
		{"kuznyechik-alternate", checkAlternate},
		{"cbc", checkCBC},
		{"cfb", checkCFB},
		{"streebog", checkStreebog},
		{"ec-decompress", checkDecompress},
		{"ec-sign", checkSign},
	}
}

// SelfTest runs every check with a default worker.
func SelfTest() error {
	return NewWorker().SelfTest(context.Background())
}

// SelfTest runs every check and returns the failures joined. Each failure
// is a *SelfTestError.
func (w *Worker) SelfTest(ctx context.Context) error {
	var errs []error
	for _, c := range Checks() {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.Run()
		if err != nil {
			var st *SelfTestError
			if !errors.As(err, &st) {
				err = &SelfTestError{Check: c.Name, Err: err}
			}
			w.cfg.logger.Error("self test failed", "check", c.Name, "error", err)
			errs = append(errs, err)
		} else {
			w.cfg.logger.Debug("self test passed", "check", c.Name)
		}
		if w.cfg.metrics != nil {
			w.cfg.metrics.RecordSelfTest(c.Name, err)
		}
	}
	return errors.Join(errs...)
}

func mismatch(check string, got, want []byte) error {
	return &SelfTestError{Check: check, Message: fmt.Sprintf("got %x, want %x", got, want)}
}

func mustDecode(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

const (
	gostKey = "8899aabbccddeeff0011223344556677fedcba98765432100123456789abcdef"
	altKey  = "6f1ea34de5f06b84596e5e20cc0432349e38ce5d0856ae35d5ec370b024e16d6"
	altIV   = "ddef3f72a8f24a0de9e2023504390d17"
)

// checkReference runs GOST R 34.12-2015 example A.1 through the
// crypto/cipher adapter.
func checkReference() error {
	const name = "kuznyechik-reference"
	block, err := kuznyechik.NewCipher(kuznyechik.Reference{}, mustDecode(gostKey))
	if err != nil {
		return err
	}
	pt := mustDecode("1122334455667700ffeeddccbbaa9988")
	want := mustDecode("7f679d90bebc24305a468d42b9d4edcd")

	got := make([]byte, kuznyechik.BlockSize)
	block.Encrypt(got, pt)
	if !bytes.Equal(got, want) {
		return mismatch(name, got, want)
	}
	block.Decrypt(got, want)
	if !bytes.Equal(got, pt) {
		return mismatch(name, got, pt)
	}
	return nil
}

func checkAlternate() error {
	alg := kuznyechik.Alternate{}
	rk, err := alg.EncryptKeys(mustDecode(altKey))
	if err != nil {
		return err
	}
	defer rk.Wipe()

	in := mustDecode(altIV)
	want := mustDecode("b7ca34376ed3b3004265d0e9bcdb8791")
	got := make([]byte, kuznyechik.BlockSize)
	alg.Encrypt(kuznyechik.BlockFromBytes(in), rk).PutBytes(got)
	if !bytes.Equal(got, want) {
		return mismatch("kuznyechik-alternate", got, want)
	}
	return nil
}

// checkCBC seals a message with a fixed key and IV and opens it again.
func checkCBC() error {
	const name = "cbc"
	key := mustDecode(gostKey)
	iv := mustDecode("1234567890abcef0a1b2c3d4e5f0011223344556677889901213141516171819")
	msg := []byte("Little Rose radials self test message")

	var sealed bytes.Buffer
	cbc := mode.NewCBC(kuznyechik.Reference{})
	if _, err := cbc.Encrypt(context.Background(), bytes.NewReader(msg), &sealed, mode.EncryptRequest{
		Key:    key,
		Length: uint64(len(msg)),
		IV:     iv,
	}); err != nil {
		return err
	}
	if n := uint64(sealed.Len()); n != mode.SealedLength(uint64(len(msg))) {
		return &SelfTestError{Check: name, Message: fmt.Sprintf("sealed %d bytes, want %d", n, mode.SealedLength(uint64(len(msg))))}
	}
	if bytes.Contains(sealed.Bytes(), msg[:kuznyechik.BlockSize]) {
		return &SelfTestError{Check: name, Message: "plaintext visible in ciphertext"}
	}

	var opened bytes.Buffer
	if err := cbc.Decrypt(context.Background(), bytes.NewReader(sealed.Bytes()), &opened, mode.DecryptRequest{
		Key:          key,
		IV:           iv,
		SealedLength: mode.SealedLength(uint64(len(msg))),
	}); err != nil {
		return err
	}
	if !bytes.Equal(opened.Bytes(), msg) {
		return mismatch(name, opened.Bytes(), msg)
	}
	return nil
}

func checkCFB() error {
	const name = "cfb"
	alg := kuznyechik.Alternate{}
	rk, err := alg.EncryptKeys(mustDecode(altKey))
	if err != nil {
		return err
	}
	defer rk.Wipe()

	iv := mustDecode(altIV)
	plain := mustDecode("5876ddf596fadde3320fa9a4f97ad586130ec1a16954073c93fe12a6bbc54e59240b2309071002202fd005041ff65b2589bb802afcf2f34e05e56b942ba8dbde")
	want := mustDecode("efbce9c2f8296ee3706a794d45a152179f93ecbeb186d59395ea3f8b23b9353f45a192bed5a736d6b45031bfbdcbffa8a36646f9d62df059e9c62dca3219ad84")

	buf := bytes.Clone(plain)
	cfb := mode.NewCFB(alg)
	if err := cfb.Encrypt(buf, iv, rk); err != nil {
		return err
	}
	if !bytes.Equal(buf, want) {
		return mismatch(name, buf, want)
	}
	if err := cfb.Decrypt(buf, iv, rk); err != nil {
		return err
	}
	if !bytes.Equal(buf, plain) {
		return mismatch(name, buf, plain)
	}
	return nil
}

// checkStreebog uses GOST R 34.11-2012 example M1.
func checkStreebog() error {
	const name = "streebog"
	m1 := mustDecode("323130393837363534333231303938373635343332313039383736353433323130393837363534333231303938373635343332313039383736353433323130")

	want512 := mustDecode("486f64c1917879417fef082b3381a4e211c324f074654c38823a7b76f830ad00fa1fbae42b1285c0352f227524bc9ab16254288dd6863dccd5b9f54a1ad0541b")
	if got := streebog.Sum512(m1); !bytes.Equal(got[:], want512) {
		return mismatch(name, got[:], want512)
	}

	want256 := mustDecode("00557be5e584fd52a449b16b0251d05d27f94ab76cbaa6da890b59d8ef1e159d")
	h := streebog.New256()
	h.Write(m1[:20])
	h.Write(m1[20:])
	if got := h.Sum(nil); !bytes.Equal(got, want256) {
		return mismatch(name, got, want256)
	}
	return nil
}

// checkDecompress recovers the P-192 generator from its packed form.
func checkDecompress() error {
	got, err := ec.Decompress(ec.ECC192, mustDecode("03188da80eb03090f67cbf20eb43a18800f4ff0afd82ff1012"))
	if err != nil {
		return err
	}
	if !got.Equal(ec.ECC192.Generator()) {
		return &SelfTestError{Check: "ec-decompress", Message: fmt.Sprintf("got %v, want the generator", got)}
	}
	return nil
}

// checkSign derives the GOST R 34.10-2012 example public key and signs and
// verifies with it.
func checkSign() error {
	const name = "ec-sign"
	c := ec.TestGost256
	d := bigint.MustParse("7a929ade789bb9be10ed359dd39a72c11b60961f49397eee1d19ce9891ec3b28")
	want := ec.NewPoint(c,
		bigint.MustParse("7f2b49e270db6d90d8595bec458b50c58585ba1d4e9b788f6689dbd8e56fd80b"),
		bigint.MustParse("26f1b489d6701dd185c8413a977b3cbbaf64d1c593d26627dffb101a87ff77da"))

	q := ec.PublicKey(c, d)
	if !q.Equal(want) {
		return &SelfTestError{Check: name, Message: fmt.Sprintf("public key %v, want %v", q, want)}
	}

	msg := []byte("I'll always have a little red rose in my heart")
	sig, err := ec.Sign(nil, d, msg, c)
	if err != nil {
		return err
	}
	if !ec.Verify(msg, sig, q, c) {
		return &SelfTestError{Check: name, Message: "signature does not verify"}
	}
	msg[0] ^= 1
	if ec.Verify(msg, sig, q, c) {
		return &SelfTestError{Check: name, Message: "signature verifies a modified message"}
	}
	return nil
}
