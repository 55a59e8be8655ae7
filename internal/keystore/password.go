package keystore

import (
	"fmt"
	"io"

	"golang.org/x/text/encoding/charmap"

	"github.com/littlerose/cryptoroom/internal/kuznyechik"
	"github.com/littlerose/cryptoroom/internal/mode"
	"github.com/littlerose/cryptoroom/internal/streebog"
)

// cfb seals container secrets. The alternate variant has no inverse cipher,
// which CFB never needs.
var cfb = mode.NewCFB(kuznyechik.Alternate{})

// encodePassword returns the Windows-1251 bytes of password.
func encodePassword(password string) ([]byte, error) {
	b, err := charmap.Windows1251.NewEncoder().Bytes([]byte(password))
	if err != nil {
		return nil, fmt.Errorf("password is not representable in Windows-1251: %w", err)
	}
	return b, nil
}

// passwordKey returns Streebog-256(pw || salt).
func passwordKey(pw, salt []byte) []byte {
	data := make([]byte, 0, len(pw)+len(salt))
	data = append(data, pw...)
	data = append(data, salt...)
	k := streebog.Sum256(data)
	return k[:]
}

// cryptSecret runs CFB over buf in place with the given key.
func cryptSecret(key, iv, buf []byte, encrypt bool) error {
	rk, err := kuznyechik.Alternate{}.DecryptKeys(key)
	if err != nil {
		return err
	}
	defer rk.Wipe()
	if encrypt {
		return cfb.Encrypt(buf, iv, rk)
	}
	return cfb.Decrypt(buf, iv, rk)
}

// sealSecret encrypts secret in place under pw with a fresh salt and IV.
func sealSecret(pw, secret []byte) (salt, iv []byte, err error) {
	salt = make([]byte, SaltSize)
	iv = make([]byte, IVSize)
	if _, err := io.ReadFull(random(), salt); err != nil {
		return nil, nil, fmt.Errorf("generate salt: %w", err)
	}
	if _, err := io.ReadFull(random(), iv); err != nil {
		return nil, nil, fmt.Errorf("generate iv: %w", err)
	}
	if err := cryptSecret(passwordKey(pw, salt), iv, secret, true); err != nil {
		return nil, nil, err
	}
	return salt, iv, nil
}

// openSecret decrypts sealed in place.
func openSecret(pw, salt, iv, sealed []byte) error {
	return cryptSecret(passwordKey(pw, salt), iv, sealed, false)
}
