package keywrap

const (
	// HKDFContext is the info string used when deriving key encryption keys
	// from an ML-KEM shared secret.
	HKDFContext = "cryptoroom:keywrap:v1"

	// OIDMLKEM768 is the algorithm identifier stored with ML-KEM-768 key pairs.
	OIDMLKEM768 = "2.16.840.1.101.3.4.4.2"

	// MLKEMPublicKeySize is the size of an ML-KEM-768 public key in bytes.
	MLKEMPublicKeySize = 1184
	// MLKEMSecretKeySize is the size of an ML-KEM-768 secret key in bytes.
	MLKEMSecretKeySize = 2400
	// MLKEMCiphertextSize is the size of an ML-KEM-768 ciphertext in bytes.
	MLKEMCiphertextSize = 1088
	// MLKEMSharedKeySize is the size of the ML-KEM-768 shared secret in bytes.
	MLKEMSharedKeySize = 32

	// PublicKeyOffset is where the public key is embedded within an
	// ML-KEM-768 secret key.
	PublicKeyOffset = 1152

	// AESKeySize is the size of an AES-256 key in bytes.
	AESKeySize = 32
	// AESNonceSize is the size of an AES-GCM nonce in bytes.
	AESNonceSize = 12
	// AESTagSize is the size of an AES-GCM authentication tag in bytes.
	AESTagSize = 16
)
