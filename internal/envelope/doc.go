// Package envelope reads and writes the encrypted file container.
//
// An envelope is laid out as
//
//	magic (7) | tag (47) | reserved hash (64) | sealed length (8, LE)
//	CBC ciphertext, length block first
//	IV (32)
//	metadata blocks: public key hash, wrapped session key
//	signature blocks: R, S, signer reference
//
// The sealed length counts the ciphertext and the IV. The signature covers
// everything from the sealed length field up to the first signature block.
// Signature blocks may be detached into a companion file named
// <path>.sign; ReadInfo performs that conversion on first read.
package envelope
