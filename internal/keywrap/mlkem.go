package keywrap

import (
	"bytes"
	"crypto/sha512"
	"fmt"
	"io"

	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
	"golang.org/x/crypto/hkdf"
)

// MLKEM wraps keys with ML-KEM-768. The shared secret is expanded with
// HKDF-SHA-512 into an AES-256-GCM key, and the output is
//
//	ciphertext (1088) || nonce (12) || sealed key || tag (16)
//
// Both keys are in the raw circl encoding; the public key is also embedded
// in the secret key.
type MLKEM struct{}

var _ Wrapper = MLKEM{}

// NewMLKEM returns the ML-KEM-768 wrapper.
func NewMLKEM() MLKEM { return MLKEM{} }

func (MLKEM) Name() string { return "mlkem768" }

func (MLKEM) OID() string { return OIDMLKEM768 }

func (MLKEM) Wrap(pub, key []byte) ([]byte, error) {
	if len(pub) != MLKEMPublicKeySize {
		return nil, fmt.Errorf("%w: public key is %d bytes, want %d", ErrInvalidKey, len(pub), MLKEMPublicKeySize)
	}
	var pk mlkem768.PublicKey
	if err := pk.Unpack(pub); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	var seed []byte
	if randReader != nil {
		seed = make([]byte, mlkem768.EncapsulationSeedSize)
		if _, err := io.ReadFull(randReader, seed); err != nil {
			return nil, fmt.Errorf("encapsulation seed: %w", err)
		}
	}
	ct := make([]byte, MLKEMCiphertextSize)
	ss := make([]byte, MLKEMSharedKeySize)
	pk.EncapsulateTo(ct, ss, seed)

	kek, err := deriveKEK(ss)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, AESNonceSize)
	if _, err := io.ReadFull(random(), nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	sealed, err := sealGCM(kek, nonce, ct, key)
	if err != nil {
		return nil, err
	}
	return append(ct, sealed...), nil
}

func (MLKEM) Unwrap(priv, wrapped []byte) ([]byte, error) {
	sk, err := parseMLKEMPrivate(priv)
	if err != nil {
		return nil, err
	}
	if len(wrapped) < MLKEMCiphertextSize+AESNonceSize+AESTagSize {
		return nil, ErrSessionKeyUnwrap
	}
	ct := wrapped[:MLKEMCiphertextSize]
	ss := make([]byte, MLKEMSharedKeySize)
	sk.DecapsulateTo(ss, ct)

	kek, err := deriveKEK(ss)
	if err != nil {
		return nil, err
	}
	key, err := openGCM(kek, ct, wrapped[MLKEMCiphertextSize:])
	if err != nil {
		return nil, ErrSessionKeyUnwrap
	}
	return key, nil
}

func (MLKEM) CheckPair(priv, pub []byte) error {
	if _, err := parseMLKEMPrivate(priv); err != nil {
		return err
	}
	if len(pub) != MLKEMPublicKeySize {
		return fmt.Errorf("%w: public key is %d bytes, want %d", ErrInvalidKey, len(pub), MLKEMPublicKeySize)
	}
	if !bytes.Equal(priv[PublicKeyOffset:PublicKeyOffset+MLKEMPublicKeySize], pub) {
		return ErrKeyMismatch
	}
	return nil
}

func (MLKEM) GenerateKeyPair() ([]byte, []byte, error) {
	pk, sk, err := mlkem768.GenerateKeyPair(randReader)
	if err != nil {
		return nil, nil, err
	}

	// MarshalBinary never fails for keys from GenerateKeyPair
	pub, _ := pk.MarshalBinary()
	priv, _ := sk.MarshalBinary()
	return priv, pub, nil
}

// PublicKeyFromSecret extracts the public key embedded in an ML-KEM-768
// secret key.
func PublicKeyFromSecret(priv []byte) ([]byte, error) {
	if len(priv) != MLKEMSecretKeySize {
		return nil, fmt.Errorf("%w: secret key is %d bytes, want %d", ErrInvalidKey, len(priv), MLKEMSecretKeySize)
	}
	pub := make([]byte, MLKEMPublicKeySize)
	copy(pub, priv[PublicKeyOffset:])
	return pub, nil
}

func parseMLKEMPrivate(priv []byte) (*mlkem768.PrivateKey, error) {
	if len(priv) != MLKEMSecretKeySize {
		return nil, fmt.Errorf("%w: secret key is %d bytes, want %d", ErrInvalidKey, len(priv), MLKEMSecretKeySize)
	}
	var sk mlkem768.PrivateKey
	if err := sk.Unpack(priv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &sk, nil
}

// deriveKEK expands a KEM shared secret into the AES-256 key that seals the
// session key. The HKDF salt is 64 zero bytes.
func deriveKEK(ss []byte) ([]byte, error) {
	kek := make([]byte, AESKeySize)
	r := hkdf.New(sha512.New, ss, make([]byte, sha512.Size), []byte(HKDFContext))
	if _, err := io.ReadFull(r, kek); err != nil {
		return nil, fmt.Errorf("derive kek: %w", err)
	}
	return kek, nil
}
