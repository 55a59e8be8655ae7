package kuznyechik

import "errors"

var (
	// ErrInvalidKeySize is returned when the master key is not KeySize bytes.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidBlockSize is returned when a buffer is shorter than BlockSize.
	ErrInvalidBlockSize = errors.New("invalid block size")

	// ErrDecryptNotSupported is returned by algorithms that only implement
	// the forward cipher.
	ErrDecryptNotSupported = errors.New("decryption not supported by this algorithm")

	// ErrNotKeyed is the panic value used when a block operation runs with
	// round keys that were never derived.
	ErrNotKeyed = errors.New("round keys not derived")

	// ErrUnknownAlgorithm is returned by ByName for unregistered names.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
)
