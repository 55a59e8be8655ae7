package keywrap

import (
	"bytes"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keyPair struct{ priv, pub []byte }

var (
	rsaOnce  sync.Once
	rsaPairs [2]keyPair
	rsaErr   error
)

// rsaTestPairs generates two small RSA key pairs once per test binary.
func rsaTestPairs(t *testing.T) [2]keyPair {
	t.Helper()
	rsaOnce.Do(func() {
		w := NewRSA(2048)
		for i := range rsaPairs {
			priv, pub, err := w.GenerateKeyPair()
			if err != nil {
				rsaErr = err
				return
			}
			rsaPairs[i] = keyPair{priv, pub}
		}
	})
	require.NoError(t, rsaErr)
	return rsaPairs
}

func testWrappers(t *testing.T) map[string]struct {
	w     Wrapper
	pairs [2]keyPair
} {
	t.Helper()
	m := NewMLKEM()
	var mp [2]keyPair
	for i := range mp {
		priv, pub, err := m.GenerateKeyPair()
		require.NoError(t, err)
		mp[i] = keyPair{priv, pub}
	}
	return map[string]struct {
		w     Wrapper
		pairs [2]keyPair
	}{
		"rsa":      {NewRSA(2048), rsaTestPairs(t)},
		"mlkem768": {m, mp},
	}
}

func TestWrapper_RoundTrip(t *testing.T) {
	sessionKey := bytes.Repeat([]byte{0x5a}, 32)

	for name, tc := range testWrappers(t) {
		t.Run(name, func(t *testing.T) {
			kp := tc.pairs[0]
			wrapped, err := tc.w.Wrap(kp.pub, sessionKey)
			require.NoError(t, err)
			assert.NotContains(t, string(wrapped), string(sessionKey))

			got, err := tc.w.Unwrap(kp.priv, wrapped)
			require.NoError(t, err)
			assert.Equal(t, sessionKey, got)
		})
	}
}

func TestWrapper_WrongKey(t *testing.T) {
	sessionKey := bytes.Repeat([]byte{0x21}, 32)

	for name, tc := range testWrappers(t) {
		t.Run(name, func(t *testing.T) {
			wrapped, err := tc.w.Wrap(tc.pairs[0].pub, sessionKey)
			require.NoError(t, err)

			_, err = tc.w.Unwrap(tc.pairs[1].priv, wrapped)
			assert.ErrorIs(t, err, ErrSessionKeyUnwrap)

			wrapped[len(wrapped)-1] ^= 1
			_, err = tc.w.Unwrap(tc.pairs[0].priv, wrapped)
			assert.ErrorIs(t, err, ErrSessionKeyUnwrap)
		})
	}
}

func TestWrapper_CheckPair(t *testing.T) {
	for name, tc := range testWrappers(t) {
		t.Run(name, func(t *testing.T) {
			a, b := tc.pairs[0], tc.pairs[1]
			assert.NoError(t, tc.w.CheckPair(a.priv, a.pub))
			assert.ErrorIs(t, tc.w.CheckPair(a.priv, b.pub), ErrKeyMismatch)
			assert.ErrorIs(t, tc.w.CheckPair([]byte("junk"), a.pub), ErrInvalidKey)
			assert.ErrorIs(t, tc.w.CheckPair(a.priv, []byte("junk")), ErrInvalidKey)
		})
	}
}

func TestWrapper_InvalidKeys(t *testing.T) {
	for _, w := range Wrappers() {
		t.Run(w.Name(), func(t *testing.T) {
			_, err := w.Wrap([]byte{1, 2, 3}, []byte("key"))
			assert.ErrorIs(t, err, ErrInvalidKey)

			_, err = w.Unwrap([]byte{1, 2, 3}, []byte("wrapped"))
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestRSA_KeyTypeMismatch(t *testing.T) {
	m := NewMLKEM()
	priv, pub, err := m.GenerateKeyPair()
	require.NoError(t, err)

	w := NewRSA(0)
	assert.ErrorIs(t, w.CheckPair(priv, pub), ErrInvalidKey)
	assert.Equal(t, DefaultRSABits, w.bits)
}

func TestMLKEM_Sizes(t *testing.T) {
	m := NewMLKEM()
	priv, pub, err := m.GenerateKeyPair()
	require.NoError(t, err)
	assert.Len(t, priv, MLKEMSecretKeySize)
	assert.Len(t, pub, MLKEMPublicKeySize)

	embedded, err := PublicKeyFromSecret(priv)
	require.NoError(t, err)
	assert.Equal(t, pub, embedded)

	_, err = PublicKeyFromSecret(pub)
	assert.ErrorIs(t, err, ErrInvalidKey)

	wrapped, err := m.Wrap(pub, make([]byte, 32))
	require.NoError(t, err)
	assert.Len(t, wrapped, MLKEMCiphertextSize+AESNonceSize+32+AESTagSize)

	_, err = m.Unwrap(priv, wrapped[:MLKEMCiphertextSize])
	assert.ErrorIs(t, err, ErrSessionKeyUnwrap)
}

func TestMLKEM_DeterministicRandom(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 4096)

	run := func() ([]byte, []byte) {
		restore := SetRandReaderForTesting(bytes.NewReader(seed))
		defer restore()
		m := NewMLKEM()
		_, pub, err := m.GenerateKeyPair()
		require.NoError(t, err)
		wrapped, err := m.Wrap(pub, []byte("session"))
		require.NoError(t, err)
		return pub, wrapped
	}

	pub1, w1 := run()
	pub2, w2 := run()
	assert.Equal(t, pub1, pub2)
	assert.Equal(t, w1, w2)
	assert.Nil(t, randReader)
}

func TestMLKEM_ShortRandom(t *testing.T) {
	m := NewMLKEM()
	_, pub, err := m.GenerateKeyPair()
	require.NoError(t, err)

	restore := SetRandReaderForTesting(bytes.NewReader(make([]byte, 8)))
	defer restore()
	_, err = m.Wrap(pub, []byte("session"))
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name, oid string
	}{
		{"rsa", OIDRSA},
		{"mlkem768", OIDMLKEM768},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ByName(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.oid, w.OID())

			w, err = ByOID(tt.oid)
			require.NoError(t, err)
			assert.Equal(t, tt.name, w.Name())
		})
	}

	w, err := ByName("RSA")
	require.NoError(t, err)
	assert.Equal(t, "rsa", w.Name())

	_, err = ByName("dsa")
	assert.ErrorIs(t, err, ErrUnknownWrapper)
	_, err = ByOID("1.2.3")
	assert.ErrorIs(t, err, ErrUnknownWrapper)
}

func TestDeriveKEK(t *testing.T) {
	secret := make([]byte, MLKEMSharedKeySize)
	for i := range secret {
		secret[i] = byte(i)
	}

	got, err := deriveKEK(secret)
	require.NoError(t, err)
	assert.Equal(t, "87d17a77026bac47111d1149f270c7457a357e364e2a8eefb4caf8da94b9c4c6", hex.EncodeToString(got))

	other, err := deriveKEK(bytes.Repeat([]byte{0xff}, MLKEMSharedKeySize))
	require.NoError(t, err)
	assert.NotEqual(t, got, other)
}

func TestGCM(t *testing.T) {
	key := bytes.Repeat([]byte{1}, AESKeySize)
	nonce := bytes.Repeat([]byte{2}, AESNonceSize)
	aad := []byte("aad")

	sealed, err := sealGCM(key, nonce, aad, []byte("plaintext"))
	require.NoError(t, err)
	assert.Equal(t, nonce, sealed[:AESNonceSize])

	got, err := openGCM(key, aad, sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("plaintext"), got)

	_, err = openGCM(key, []byte("other"), sealed)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = openGCM(key, aad, sealed[:10])
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = sealGCM(key[:16], nonce, nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidKeySize))

	_, err = sealGCM(key, nonce[:8], nil, nil)
	assert.ErrorIs(t, err, ErrInvalidNonceSize)
}
