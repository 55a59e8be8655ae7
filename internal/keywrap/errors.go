package keywrap

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat is matched by every *FormatError.
	ErrInvalidFormat = errors.New("invalid metadata format")

	// ErrSessionKeyUnwrap is returned when a wrapped session key cannot be
	// recovered. The cause is deliberately not reported.
	ErrSessionKeyUnwrap = errors.New("session key could not be unwrapped; the file may be addressed to another key")

	// ErrKeyMismatch is returned when a private key does not belong to a
	// public key.
	ErrKeyMismatch = errors.New("private key does not match public key")

	// ErrInvalidKey is returned for keys that cannot be parsed.
	ErrInvalidKey = errors.New("invalid key encoding")

	// ErrInvalidKeySize is returned when a symmetric key has the wrong size.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidNonceSize is returned when the nonce size is invalid.
	ErrInvalidNonceSize = errors.New("invalid nonce size")

	// ErrDecryptionFailed is returned when authenticated decryption fails.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrUnknownWrapper is returned by lookups for unregistered wrappers.
	ErrUnknownWrapper = errors.New("unknown key wrapper")
)

// Diagnostic codes carried by FormatError.
const (
	CodeNoSignature     = "PR0"
	CodeNoSignerKey     = "PR1"
	CodeTruncated       = "AS1"
	CodeNoSessionKey    = "AC2"
	CodeManySessionKeys = "AC3"
	CodeNoPublicKeyHash = "AC4"
	CodeSignatureOrder  = "AS2"
	CodeNegativeLength  = "AS5"
)

// FormatError describes a metadata block sequence that violates the file
// policy.
type FormatError struct {
	Code    string
	Message string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error %s: %s", e.Code, e.Message)
}

// Is reports whether target is ErrInvalidFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrInvalidFormat
}

func formatErr(code, format string, args ...any) *FormatError {
	return &FormatError{Code: code, Message: fmt.Sprintf(format, args...)}
}
