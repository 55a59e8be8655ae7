// Package kuznyechik implements the GOST R 34.12-2015 128-bit block cipher
// (Kuznyechik) with a 256-bit key.
//
// Two interchangeable algorithms satisfy the [Algorithm] interface:
//
//   - [Reference]: the LS transform is realized as sixteen lookups into
//     precomputed 256-entry tables per 64-bit half. Encryption and
//     decryption are supported.
//
//   - [Alternate]: a byte-oriented rendition that applies the S-box and the
//     GF(2^8) linear transform step by step. It produces the same ciphertext
//     as [Reference] but supports encryption only; [Alternate.Decrypt]
//     returns [ErrDecryptNotSupported]. It backs CFB, which never needs the
//     inverse cipher.
//
// # Byte Order
//
// A [Block128] is stored as two little-endian 64-bit halves. Byte 0 of the
// serialized block is the least significant byte of Lo, which corresponds to
// the first hex pair of the vectors printed in the standard, e.g. plaintext
// 1122334455667700ffeeddccbbaa9988 decodes to
// Lo = 0x0077665544332211, Hi = 0x8899aabbccddeeff.
//
// # Round Keys
//
// Round keys are derived once per (key, direction) with
// [Algorithm.EncryptKeys] or [Algorithm.DecryptKeys]. Passing nil or
// zero-value [RoundKeys] to Encrypt or Decrypt is a programming error and
// panics.
//
// Neither algorithm is constant time.
package kuznyechik
