// Package keywrap protects per-file session keys with an asymmetric
// primitive and encodes the typed metadata blocks that trail an encrypted
// file.
//
// Two Wrapper implementations are provided: RSA-OAEP over PKCS #8 and
// SubjectPublicKeyInfo encoded keys, and ML-KEM-768 where the encapsulated
// secret is expanded with HKDF-SHA-512 into an AES-256-GCM key-encryption
// key.
//
// Metadata blocks are encoded as
//
//	type (1 byte) | length (4 bytes, little-endian) | payload
//
// and read back until the end of the input. The offset of the first
// signature R block marks where the signed region of a file ends.
package keywrap
