package mode

import "errors"

var (
	// ErrDataTooShort is returned when CBC input is shorter than one block.
	ErrDataTooShort = errors.New("data shorter than one cipher block")

	// ErrInvalidIV is returned when an IV has the wrong size.
	ErrInvalidIV = errors.New("invalid initialization vector size")

	// ErrLengthMismatch is returned when the decrypted length block does not
	// agree with the ciphertext region size.
	ErrLengthMismatch = errors.New("decrypted length does not match ciphertext size")
)
