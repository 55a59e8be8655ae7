// Package keystore manages password-protected secret key containers.
//
// A container is an XML document holding owner metadata, a key-wrapping key
// pair and an EC signing key pair. Both private keys are encrypted in CFB
// mode under Streebog-256(password || salt), with the password encoded as
// Windows-1251. The document itself is stored in a key file under a fixed
// key; that outer layer only detects corruption and offers no secrecy.
package keystore
