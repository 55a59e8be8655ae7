package keywrap

import (
	"fmt"
	"io"
	"strings"
)

// randReader is the random source used by the wrappers.
// It defaults to nil (which uses crypto/rand) but can be overridden for testing.
var randReader io.Reader

// Wrapper protects a symmetric key for the holder of a private key.
type Wrapper interface {
	// Name identifies the wrapper in configuration.
	Name() string
	// OID is recorded in key containers next to the keys.
	OID() string
	// Wrap encrypts key for pub.
	Wrap(pub, key []byte) ([]byte, error)
	// Unwrap recovers a key produced by Wrap.
	Unwrap(priv, wrapped []byte) ([]byte, error)
	// CheckPair reports ErrKeyMismatch when priv does not belong to pub.
	CheckPair(priv, pub []byte) error
	// GenerateKeyPair returns a new encoded key pair.
	GenerateKeyPair() (priv, pub []byte, err error)
}

// Wrappers returns the built-in wrappers with default settings.
func Wrappers() []Wrapper {
	return []Wrapper{NewRSA(0), NewMLKEM()}
}

// ByName returns a built-in wrapper by name, ignoring case.
func ByName(name string) (Wrapper, error) {
	for _, w := range Wrappers() {
		if strings.EqualFold(w.Name(), name) {
			return w, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownWrapper, name)
}

// ByOID returns a built-in wrapper by the OID stored in key containers.
func ByOID(oid string) (Wrapper, error) {
	for _, w := range Wrappers() {
		if w.OID() == oid {
			return w, nil
		}
	}
	return nil, fmt.Errorf("%w: oid %q", ErrUnknownWrapper, oid)
}
