package cryptoroom

import (
	"errors"
	"fmt"

	"github.com/littlerose/cryptoroom/internal/envelope"
	"github.com/littlerose/cryptoroom/internal/keystore"
	"github.com/littlerose/cryptoroom/internal/keywrap"
	"github.com/littlerose/cryptoroom/internal/mode"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrSignatureInvalid is returned when a file signature does not verify.
	ErrSignatureInvalid = envelope.ErrSignatureInvalid

	// ErrFileTooLargeToSign is returned when an encrypted file exceeds the
	// signing limit. The encrypted file is kept, unsigned.
	ErrFileTooLargeToSign = envelope.ErrFileTooLargeToSign

	// ErrNotEncrypted is returned for files without the envelope header.
	ErrNotEncrypted = envelope.ErrNotEnvelope

	// ErrTruncated is returned for envelopes shorter than their header says.
	ErrTruncated = envelope.ErrTruncated

	// ErrWrongPassword is returned when a key container does not unlock.
	ErrWrongPassword = keystore.ErrWrongPassword

	// ErrChecksumMismatch is returned when a key file fails its checksum.
	ErrChecksumMismatch = keystore.ErrChecksumMismatch

	// ErrSessionKeyUnwrap is returned when the session key cannot be
	// recovered with the given private key.
	ErrSessionKeyUnwrap = keywrap.ErrSessionKeyUnwrap

	// ErrInvalidFormat is matched by every *FormatError.
	ErrInvalidFormat = keywrap.ErrInvalidFormat

	// ErrDataTooShort is returned for plaintexts shorter than one block.
	ErrDataTooShort = mode.ErrDataTooShort

	// ErrLengthMismatch is returned when the decrypted length block disagrees
	// with the size recorded in the header.
	ErrLengthMismatch = mode.ErrLengthMismatch

	// ErrSignerMismatch is returned when a file was signed by a key other
	// than the expected sender.
	ErrSignerMismatch = errors.New("file was signed by another key")

	// ErrSelfTestFailed is matched by every *SelfTestError.
	ErrSelfTestFailed = errors.New("self test failed")
)

// FormatError describes a trailer that violates the metadata block policy.
type FormatError = keywrap.FormatError

// CryptoRoomError is implemented by all errors returned from Worker methods.
type CryptoRoomError interface {
	error
	CryptoRoomError() // marker method
}

// FileError records the operation and file a failure happened on.
type FileError struct {
	Op   string // "encrypt", "decrypt", "verify", "sign"
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *FileError) Unwrap() error {
	return e.Err
}

// CryptoRoomError implements the CryptoRoomError interface.
func (e *FileError) CryptoRoomError() {}

// SelfTestError reports a failed known-answer check.
type SelfTestError struct {
	Check   string
	Message string
	Err     error
}

func (e *SelfTestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("self test %s: %v", e.Check, e.Err)
	}
	return fmt.Sprintf("self test %s: %s", e.Check, e.Message)
}

// Unwrap returns the underlying error.
func (e *SelfTestError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *SelfTestError) Is(target error) bool {
	return target == ErrSelfTestFailed
}

// CryptoRoomError implements the CryptoRoomError interface.
func (e *SelfTestError) CryptoRoomError() {}

// wrapError attaches the operation and path to err.
func wrapError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FileError
	if errors.As(err, &fe) {
		return err
	}
	return &FileError{Op: op, Path: path, Err: err}
}
