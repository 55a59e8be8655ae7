package envelope

import "errors"

var (
	// ErrNotEnvelope is returned when the header magic or tag does not match.
	ErrNotEnvelope = errors.New("not an encrypted file")

	// ErrTruncated is returned when the file is shorter than its header
	// declares.
	ErrTruncated = errors.New("encrypted file is truncated")

	// ErrSignatureInvalid is returned when the file signature does not verify.
	ErrSignatureInvalid = errors.New("file signature is invalid; the file was damaged or modified")

	// ErrFileTooLargeToSign is returned by Sign for files above MaxSignSize.
	// The file is left unsigned.
	ErrFileTooLargeToSign = errors.New("file too large to sign")

	// ErrInvalidSignerRef is returned when a signer reference cannot be decoded.
	ErrInvalidSignerRef = errors.New("invalid signer reference")
)
