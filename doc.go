// Package cryptoroom encrypts and signs files with the GOST R 34.12-2015
// Kuznyechik cipher, the GOST R 34.11-2012 Streebog hash and GOST R
// 34.10-2012 style signatures.
//
// An encrypted file carries a fixed header, the CBC ciphertext of the
// plaintext, the chaining IV, a digest of the recipient public key, the
// session key wrapped for the recipient and a signature over the
// ciphertext region. Session keys are wrapped with RSA-OAEP or ML-KEM-768.
//
// Basic usage:
//
//	c, err := keystore.Load("alice.grk")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	keys, err := c.Unlock(password)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	to, from, err := cryptoroom.PublicKeys(c)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	w := cryptoroom.NewWorker(cryptoroom.WithLogger(slog.Default()))
//	if err := w.EncryptFile(ctx, "report.pdf", "report.pdf.enc", to, keys.Signing); err != nil {
//	    log.Fatal(err)
//	}
//	if err := w.DecryptFile(ctx, "report.pdf.enc", "report.pdf", keys, from); err != nil {
//	    log.Fatal(err)
//	}
//
// Decrypting a file for the first time moves its signature blocks into a
// companion file named after it with the ".sign" suffix.
package cryptoroom
