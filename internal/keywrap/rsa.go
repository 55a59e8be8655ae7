package keywrap

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"fmt"
	"io"
)

const (
	// DefaultRSABits is the modulus size of generated RSA keys.
	DefaultRSABits = 4096

	// OIDRSA is the algorithm identifier stored with RSA key pairs.
	OIDRSA = "1.2.643.7.1.1.1.2"
)

// RSA wraps keys with RSA-OAEP (SHA-1). Private keys are PKCS #8 DER, public
// keys SubjectPublicKeyInfo DER.
type RSA struct {
	bits int
}

var _ Wrapper = (*RSA)(nil)

// NewRSA returns an RSA wrapper generating keys of the given size, or
// DefaultRSABits when bits is zero.
func NewRSA(bits int) *RSA {
	if bits == 0 {
		bits = DefaultRSABits
	}
	return &RSA{bits: bits}
}

func (w *RSA) Name() string { return "rsa" }

func (w *RSA) OID() string { return OIDRSA }

func (w *RSA) Wrap(pub, key []byte) ([]byte, error) {
	pk, err := parseRSAPublic(pub)
	if err != nil {
		return nil, err
	}
	out, err := rsa.EncryptOAEP(sha1.New(), random(), pk, key, nil)
	if err != nil {
		return nil, fmt.Errorf("wrap session key: %w", err)
	}
	return out, nil
}

func (w *RSA) Unwrap(priv, wrapped []byte) ([]byte, error) {
	sk, err := parseRSAPrivate(priv)
	if err != nil {
		return nil, err
	}
	key, err := rsa.DecryptOAEP(sha1.New(), nil, sk, wrapped, nil)
	if err != nil {
		return nil, ErrSessionKeyUnwrap
	}
	return key, nil
}

func (w *RSA) CheckPair(priv, pub []byte) error {
	sk, err := parseRSAPrivate(priv)
	if err != nil {
		return err
	}
	pk, err := parseRSAPublic(pub)
	if err != nil {
		return err
	}
	if !bytes.Equal(sk.N.Bytes(), pk.N.Bytes()) {
		return ErrKeyMismatch
	}
	return nil
}

func (w *RSA) GenerateKeyPair() ([]byte, []byte, error) {
	sk, err := rsa.GenerateKey(random(), w.bits)
	if err != nil {
		return nil, nil, fmt.Errorf("generate rsa key: %w", err)
	}
	priv, err := x509.MarshalPKCS8PrivateKey(sk)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal private key: %w", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(&sk.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal public key: %w", err)
	}
	return priv, pub, nil
}

func parseRSAPrivate(der []byte) (*rsa.PrivateKey, error) {
	k, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	sk, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: private key is %T, want RSA", ErrInvalidKey, k)
	}
	return sk, nil
}

func parseRSAPublic(der []byte) (*rsa.PublicKey, error) {
	k, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	pk, ok := k.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is %T, want RSA", ErrInvalidKey, k)
	}
	return pk, nil
}

func random() io.Reader {
	if randReader != nil {
		return randReader
	}
	return rand.Reader
}
