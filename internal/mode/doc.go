// Package mode implements the GOST R 34.13-2015 chaining modes used by the
// file envelope and the key container.
//
// CBC streams a file through a 256-bit feedback register: the plaintext is
// preceded by an encrypted 8-byte length block, the last partial block is
// padded with procedure 2 (a single 0x01 then zeros), and the IV plus the
// caller's metadata blocks follow the ciphertext. CFB works in place on
// in-memory buffers and only ever runs the forward cipher.
package mode
