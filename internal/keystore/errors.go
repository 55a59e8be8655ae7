package keystore

import (
	"errors"
	"fmt"
)

var (
	// ErrWrongPassword is matched by every failure to unlock a container.
	ErrWrongPassword = errors.New("wrong password")

	// ErrChecksumMismatch is returned when a key file's content hash does not
	// match its header.
	ErrChecksumMismatch = errors.New("key file checksum mismatch; the file is damaged or was modified")

	// ErrInvalidKeyFile is matched by every *FileError.
	ErrInvalidKeyFile = errors.New("invalid secret key file")

	// ErrPasswordPolicy is returned when a new password is rejected.
	ErrPasswordPolicy = errors.New("password does not meet the policy")
)

// Load diagnostic codes.
const (
	CodeEmptyFile    = "R0"
	CodeShortFile    = "R1"
	CodeBadMagic     = "R4"
	CodeBadTag       = "R5"
	CodeBadSize      = "R6"
	CodeChecksum     = "R9"
	CodeShortPackage = "L4"
	CodeNoRoot       = "L5"
	CodeBadDocument  = "L6"
)

// FileError describes a key file that could not be loaded.
type FileError struct {
	Code string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("key file error %s: %v", e.Code, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Is reports whether target is ErrInvalidKeyFile.
func (e *FileError) Is(target error) bool {
	return target == ErrInvalidKeyFile
}

func fileErr(code string, err error) *FileError {
	return &FileError{Code: code, Err: err}
}

// KeyMismatchError reports a decrypted private key that does not belong to
// the stored public key. It matches ErrWrongPassword.
type KeyMismatchError struct {
	// Part is "wrapping" or "signing".
	Part string
}

func (e *KeyMismatchError) Error() string {
	return fmt.Sprintf("wrong password: %s key pair mismatch", e.Part)
}

// Is reports whether target is ErrWrongPassword.
func (e *KeyMismatchError) Is(target error) bool {
	return target == ErrWrongPassword
}

// DecodeError reports a container field that could not be decoded while
// unlocking. It matches ErrWrongPassword.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wrong password: decode %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is reports whether target is ErrWrongPassword.
func (e *DecodeError) Is(target error) bool {
	return target == ErrWrongPassword
}
