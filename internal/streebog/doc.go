// Package streebog implements the GOST R 34.11-2012 hash function with
// 256-bit and 512-bit outputs.
//
// Digests are byte arrays in the standard's big-endian presentation: the
// first byte of a Sum512 result is the leftmost byte of the published
// test vectors. Messages are consumed in 64-byte windows starting from the
// tail, as the standard prescribes for its big-endian notation.
package streebog
