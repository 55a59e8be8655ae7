package keystore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlerose/cryptoroom/internal/ec"
	"github.com/littlerose/cryptoroom/internal/envelope"
	"github.com/littlerose/cryptoroom/internal/keywrap"
	"github.com/littlerose/cryptoroom/internal/streebog"
)

const testPassword = "correct horse"

var testOwner = Owner{
	KeyVersion:    "1",
	KeyGenVersion: "2.0",
	OrgName:       "Little Rose",
	OrgCode:       "LR-01",
	Department:    "Отдел защиты информации",
	Phone:         "+7 000 000-00-00",
	Surname:       "Иванов",
	GivenName:     "Иван",
	Patronymic:    "Иванович",
}

func newContainer(t *testing.T) *Container {
	t.Helper()
	c, err := Create(testOwner, testPassword, keywrap.NewMLKEM())
	require.NoError(t, err)
	return c
}

func TestCreate(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 30, 15, 999, time.UTC)
	defer SetClockForTesting(func() time.Time { return fixed })()

	c := newContainer(t)

	assert.Equal(t, testOwner.OrgName, c.OrgName)
	assert.Equal(t, testOwner.Surname, c.Surname)
	assert.True(t, c.ValidFrom.Equal(fixed.Truncate(time.Second)))
	assert.Equal(t, Validity, c.ValidUntil.Sub(c.ValidFrom))
	assert.Equal(t, ec.OIDParamSetB, c.CurveOID)
	assert.Equal(t, keywrap.OIDMLKEM768, c.AlgorithmOID)
	assert.NotEqual(t, uuid.Nil, c.ID())

	assert.Len(t, c.SignKeySalt, 2*SaltSize)
	assert.Len(t, c.PrivateKeySalt, 2*SaltSize)
	assert.Len(t, c.SignKeyIV, 2*IVSize)
	assert.Len(t, c.PrivateKeyIV, 2*IVSize)
	assert.Len(t, c.SignKey, 2*signKeySize)
	assert.NotEqual(t, c.SignKeySalt, c.PrivateKeySalt)

	q, err := c.SigningPublicKey()
	require.NoError(t, err)
	assert.True(t, q.Curve.IsOnCurve(q))
}

func TestUnlock(t *testing.T) {
	c := newContainer(t)

	keys, err := c.Unlock(testPassword)
	require.NoError(t, err)
	assert.Equal(t, "mlkem768", keys.Wrapper.Name())

	pub, err := c.WrappingPublicKey()
	require.NoError(t, err)
	assert.Equal(t, pub, keys.PublicKey)

	embedded, err := keywrap.PublicKeyFromSecret(keys.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, pub, embedded)

	assert.True(t, ec.PublicKey(keys.Signing.Curve, keys.Signing.D).Equal(keys.Signing.Q))
	id, err := envelope.ParseSignerRef(keys.Signing.Ref)
	require.NoError(t, err)
	assert.Equal(t, c.ID(), id)

	// the sealed fields are untouched by unlocking
	again, err := c.Unlock(testPassword)
	require.NoError(t, err)
	assert.Equal(t, keys.PrivateKey, again.PrivateKey)
}

func TestCheckPassword_Wrong(t *testing.T) {
	c := newContainer(t)
	require.NoError(t, c.CheckPassword(testPassword))

	for _, pw := range []string{"", "correct horsE", "correct horse ", "совсем другой", strings.Repeat("x", 200)} {
		t.Run(pw, func(t *testing.T) {
			var err error
			assert.NotPanics(t, func() { err = c.CheckPassword(pw) })
			assert.ErrorIs(t, err, ErrWrongPassword)

			var de *DecodeError
			var ke *KeyMismatchError
			assert.True(t, errors.As(err, &de) || errors.As(err, &ke), "cause is typed: %v", err)
		})
	}
}

func TestCheckPassword_RSA(t *testing.T) {
	if testing.Short() {
		t.Skip("RSA key generation")
	}
	c, err := Create(testOwner, testPassword, keywrap.NewRSA(2048))
	require.NoError(t, err)
	assert.Equal(t, keywrap.OIDRSA, c.AlgorithmOID)

	require.NoError(t, c.CheckPassword(testPassword))
	assert.ErrorIs(t, c.CheckPassword("wrong password"), ErrWrongPassword)
}

func TestUnlock_KeyMismatch(t *testing.T) {
	t.Run("wrapping", func(t *testing.T) {
		c := newContainer(t)
		other := newContainer(t)
		c.PublicKey = other.PublicKey

		_, err := c.Unlock(testPassword)
		var ke *KeyMismatchError
		require.True(t, errors.As(err, &ke), "got %v", err)
		assert.Equal(t, "wrapping", ke.Part)
		assert.ErrorIs(t, err, ErrWrongPassword)
	})

	t.Run("signing", func(t *testing.T) {
		c := newContainer(t)
		g := ec.ParamSetB.Generator()
		c.SignPublicX = g.X.Text(16)
		c.SignPublicY = g.Y.Text(16)

		_, err := c.Unlock(testPassword)
		var ke *KeyMismatchError
		require.True(t, errors.As(err, &ke), "got %v", err)
		assert.Equal(t, "signing", ke.Part)
	})
}

func TestUnlock_DecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Container)
		field  string
	}{
		{"bad hex", func(c *Container) { c.PrivateKey = "zz" }, "private key"},
		{"unknown algorithm", func(c *Container) { c.AlgorithmOID = "1.2.3" }, "algorithm oid"},
		{"unknown curve", func(c *Container) { c.CurveOID = "1.2.3" }, "curve oid"},
		{"empty point", func(c *Container) { c.SignPublicY = "" }, "public y"},
		{"short iv", func(c *Container) { c.SignKeyIV = "00" }, "signing key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newContainer(t)
			tt.mutate(c)

			err := c.CheckPassword(testPassword)
			assert.ErrorIs(t, err, ErrWrongPassword)
			var de *DecodeError
			require.True(t, errors.As(err, &de), "got %v", err)
			assert.Equal(t, tt.field, de.Field)
		})
	}
}

func TestSaveLoad(t *testing.T) {
	c := newContainer(t)
	path := filepath.Join(t.TempDir(), "user"+Extension)
	require.NoError(t, c.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.True(t, c.ValidFrom.Equal(loaded.ValidFrom))
	assert.True(t, c.ValidUntil.Equal(loaded.ValidUntil))
	assert.True(t, c.GeneratedAt.Equal(loaded.GeneratedAt))

	want := *c
	want.XMLName = loaded.XMLName
	want.ValidFrom, want.ValidUntil, want.GeneratedAt = loaded.ValidFrom, loaded.ValidUntil, loaded.GeneratedAt
	assert.Equal(t, want, *loaded)
	assert.Equal(t, "Отдел защиты информации", loaded.Department)

	require.NoError(t, loaded.CheckPassword(testPassword))
}

func TestMarshalBinary_Layout(t *testing.T) {
	raw, err := newContainer(t).MarshalBinary()
	require.NoError(t, err)

	assert.Equal(t, envelope.Magic[:], raw[:envelope.MagicSize])
	assert.Equal(t, FileTag, string(raw[envelope.MagicSize:envelope.MagicSize+len(FileTag)]))
	assert.Equal(t, 90, HeaderSize)

	n := binary.LittleEndian.Uint32(raw[HeaderSize-4:])
	require.Equal(t, len(raw)-HeaderSize, int(n))

	pkg := raw[HeaderSize:]
	sum := streebog.Sum256(pkg)
	assert.Equal(t, sum[:], raw[HeaderSize-4-32:HeaderSize-4])

	docLen := binary.LittleEndian.Uint32(pkg[IVSize:])
	assert.Equal(t, len(pkg)-packageHeaderSize, int(docLen))
	assert.NotContains(t, string(pkg), "PkContainer", "document is not stored in the clear")
}

// keyFile frames pkg the way MarshalBinary does.
func keyFile(pkg []byte) []byte {
	sum := streebog.Sum256(pkg)
	out := append([]byte{}, envelope.Magic[:]...)
	out = append(out, FileTag...)
	out = append(out, sum[:]...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(pkg)))
	return append(out, pkg...)
}

func sealedPackage(t *testing.T, doc string) []byte {
	t.Helper()
	iv := bytes.Repeat([]byte{9}, IVSize)
	body := []byte(doc)
	require.NoError(t, cryptSecret(mustHex(packageKey), iv, body, true))
	pkg := append([]byte{}, iv...)
	pkg = binary.LittleEndian.AppendUint32(pkg, uint32(len(body)))
	return append(pkg, body...)
}

func TestUnmarshalBinary_Errors(t *testing.T) {
	good, err := newContainer(t).MarshalBinary()
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  []byte
		code string
	}{
		{"empty", nil, CodeEmptyFile},
		{"short", good[:HeaderSize-1], CodeShortFile},
		{"magic", func() []byte { b := bytes.Clone(good); b[0] ^= 0xff; return b }(), CodeBadMagic},
		{"tag", func() []byte { b := bytes.Clone(good); b[10] = '#'; return b }(), CodeBadTag},
		{"size", good[:len(good)-1], CodeBadSize},
		{"checksum", func() []byte { b := bytes.Clone(good); b[len(b)-1] ^= 1; return b }(), CodeChecksum},
		{"short package", keyFile(make([]byte, packageHeaderSize-1)), CodeShortPackage},
		{"no root", keyFile(sealedPackage(t, "<Other><P0>1</P0></Other>")), CodeNoRoot},
		{"broken document", keyFile(sealedPackage(t, "<PkContainer><P0>1</P1>")), CodeBadDocument},
		{"document length", keyFile(func() []byte {
			pkg := sealedPackage(t, "<PkContainer><P0>1</P0></PkContainer>")
			binary.LittleEndian.PutUint32(pkg[IVSize:], 3)
			return pkg
		}()), CodeBadSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Container
			err := c.UnmarshalBinary(tt.raw)
			assert.ErrorIs(t, err, ErrInvalidKeyFile)
			var fe *FileError
			require.True(t, errors.As(err, &fe), "got %v", err)
			assert.Equal(t, tt.code, fe.Code)
		})
	}

	var c Container
	bad := bytes.Clone(good)
	bad[len(bad)-1] ^= 1
	assert.ErrorIs(t, c.UnmarshalBinary(bad), ErrChecksumMismatch)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.grk"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name    string
		pw      string
		wantErr bool
	}{
		{"min length", "12345678", false},
		{"max length", strings.Repeat("a", 64), false},
		{"cyrillic", "секретный", false},
		{"too short", "1234567", true},
		{"too long", strings.Repeat("a", 65), true},
		{"not representable", "пароль🌹🌹", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.pw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPasswordPolicy)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := Create(testOwner, "short", keywrap.NewMLKEM())
	assert.ErrorIs(t, err, ErrPasswordPolicy)
}

func TestEncodePassword(t *testing.T) {
	got, err := encodePassword("пароль1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xef, 0xe0, 0xf0, 0xee, 0xeb, 0xfc, '1'}, got)
}

func TestPasswordKey(t *testing.T) {
	pw, salt := []byte("pw"), []byte("salt")
	want := streebog.Sum256([]byte("pwsalt"))
	assert.Equal(t, want[:], passwordKey(pw, salt))
}

func TestSealSecret_RoundTrip(t *testing.T) {
	secret := []byte("a secret longer than a single block")
	sealed := bytes.Clone(secret)

	salt, iv, err := sealSecret([]byte("pw"), sealed)
	require.NoError(t, err)
	assert.NotEqual(t, secret, sealed)

	require.NoError(t, openSecret([]byte("pw"), salt, iv, sealed))
	assert.Equal(t, secret, sealed)
}

func TestCreate_RandomFailure(t *testing.T) {
	defer SetRandReaderForTesting(bytes.NewReader(make([]byte, 10)))()
	_, err := Create(testOwner, testPassword, keywrap.NewMLKEM())
	assert.Error(t, err)
}
