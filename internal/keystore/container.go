package keystore

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/littlerose/cryptoroom/internal/bigint"
	"github.com/littlerose/cryptoroom/internal/ec"
	"github.com/littlerose/cryptoroom/internal/envelope"
	"github.com/littlerose/cryptoroom/internal/keywrap"
)

const (
	// PasswordMinLength and PasswordMaxLength bound new passwords, in
	// characters.
	PasswordMinLength = 8
	PasswordMaxLength = 64

	// SaltSize is the length of each password salt.
	SaltSize = 17
	// IVSize is the length of each CFB IV.
	IVSize = 16

	// signKeySize is the stored length of the EC private scalar.
	signKeySize = 64

	// Validity is how long a new key stays valid.
	Validity = 365 * 24 * time.Hour
)

// DefaultCurveOID names the curve of new signing keys.
const DefaultCurveOID = ec.OIDParamSetB

var (
	// randReader is the random source for salts, IVs and EC keys.
	// It defaults to nil (which uses crypto/rand) but can be overridden for testing.
	randReader io.Reader

	now = time.Now

	validate = validator.New(validator.WithRequiredStructEnabled())
)

// Owner is the organization and person metadata copied into new containers.
type Owner struct {
	KeyVersion    string `yaml:"key_version"`
	KeyGenVersion string `yaml:"key_gen_version"`
	OrgName       string `yaml:"org_name"`
	OrgCode       string `yaml:"org_code"`
	Department    string `yaml:"department"`
	Phone         string `yaml:"phone"`
	Surname       string `yaml:"surname"`
	GivenName     string `yaml:"given_name"`
	Patronymic    string `yaml:"patronymic"`
}

// Container is the secret key document. Binary fields are lowercase hex.
type Container struct {
	XMLName xml.Name `xml:"PkContainer"`

	KeyVersion    string `xml:"P0"`
	KeyGenVersion string `xml:"P1"`
	OrgName       string `xml:"P2"`
	OrgCode       string `xml:"P3"`
	Department    string `xml:"P4"`
	Phone         string `xml:"P5"`
	Surname       string `xml:"P6"`
	GivenName     string `xml:"P7"`
	Patronymic    string `xml:"P8"`

	ValidFrom  time.Time `xml:"P9"`
	ValidUntil time.Time `xml:"P10"`

	SignKey     string    `xml:"P11"`
	SignKeySalt string    `xml:"P12"`
	Reserved0   string    `xml:"P13"`
	SignKeyIV   string    `xml:"P14"`
	GeneratedAt time.Time `xml:"P15"`
	SignPublicX string    `xml:"P16"`
	SignPublicY string    `xml:"P17"`

	PrivateKey     string `xml:"P18"`
	PrivateKeyIV   string `xml:"P19"`
	PublicKey      string `xml:"P20"`
	PrivateKeySalt string `xml:"P21"`
	AlgorithmOID   string `xml:"P22"`
	Reserved1      string `xml:"P23"`
	CurveOID       string `xml:"P24"`

	// KeyID identifies the key in signer reference blocks.
	KeyID string `xml:"P25,omitempty"`
}

// Keys is an unlocked container.
type Keys struct {
	Wrapper    keywrap.Wrapper
	PrivateKey []byte
	PublicKey  []byte
	Signing    envelope.SigningKey
}

type passwordPolicy struct {
	Password string `validate:"min=8,max=64"`
}

// ValidatePassword checks the length policy for new passwords.
func ValidatePassword(password string) error {
	if err := validate.Struct(passwordPolicy{Password: password}); err != nil {
		return fmt.Errorf("%w: length must be %d to %d characters", ErrPasswordPolicy, PasswordMinLength, PasswordMaxLength)
	}
	if _, err := encodePassword(password); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicy, err)
	}
	return nil
}

// Create generates a wrapping key pair with w and a signing key pair on
// DefaultCurveOID, and seals both private keys under password.
func Create(owner Owner, password string, w keywrap.Wrapper) (*Container, error) {
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	pw, err := encodePassword(password)
	if err != nil {
		return nil, err
	}

	t := now().UTC().Truncate(time.Second)
	c := &Container{
		KeyVersion:    owner.KeyVersion,
		KeyGenVersion: owner.KeyGenVersion,
		OrgName:       owner.OrgName,
		OrgCode:       owner.OrgCode,
		Department:    owner.Department,
		Phone:         owner.Phone,
		Surname:       owner.Surname,
		GivenName:     owner.GivenName,
		Patronymic:    owner.Patronymic,
		ValidFrom:     t,
		ValidUntil:    t.Add(Validity),
		Reserved0:     "0",
		Reserved1:     "1",
		KeyID:         uuid.New().String(),
	}

	if err := c.createSigningKey(pw); err != nil {
		return nil, err
	}
	if err := c.createWrappingKey(pw, w); err != nil {
		return nil, err
	}
	c.GeneratedAt = now().UTC().Truncate(time.Second)
	return c, nil
}

func (c *Container) createSigningKey(pw []byte) error {
	curve, err := ec.ByOID(DefaultCurveOID)
	if err != nil {
		return err
	}
	d, q, err := ec.GenerateKey(random(), curve)
	if err != nil {
		return fmt.Errorf("generate signing key: %w", err)
	}

	secret := bigint.FixedBytes(d, signKeySize)
	salt, iv, err := sealSecret(pw, secret)
	if err != nil {
		return err
	}

	width := 2 * curve.ByteSize()
	c.SignKey = hex.EncodeToString(secret)
	c.SignKeySalt = hex.EncodeToString(salt)
	c.SignKeyIV = hex.EncodeToString(iv)
	c.SignPublicX = bigint.Hex(q.X, width)
	c.SignPublicY = bigint.Hex(q.Y, width)
	c.CurveOID = curve.OID
	return nil
}

func (c *Container) createWrappingKey(pw []byte, w keywrap.Wrapper) error {
	priv, pub, err := w.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("generate %s key pair: %w", w.Name(), err)
	}
	salt, iv, err := sealSecret(pw, priv)
	if err != nil {
		return err
	}
	c.PrivateKey = hex.EncodeToString(priv)
	c.PrivateKeySalt = hex.EncodeToString(salt)
	c.PrivateKeyIV = hex.EncodeToString(iv)
	c.PublicKey = hex.EncodeToString(pub)
	c.AlgorithmOID = w.OID()
	return nil
}

// CheckPassword reports whether password unlocks both key pairs. Every
// failure matches ErrWrongPassword.
func (c *Container) CheckPassword(password string) error {
	_, err := c.Unlock(password)
	return err
}

// Unlock decrypts both private keys and checks them against the stored
// public keys. Every failure matches ErrWrongPassword; errors.As with
// *KeyMismatchError or *DecodeError tells the cause apart.
func (c *Container) Unlock(password string) (*Keys, error) {
	pw, err := encodePassword(password)
	if err != nil {
		return nil, &DecodeError{Field: "password", Err: err}
	}

	w, err := keywrap.ByOID(c.AlgorithmOID)
	if err != nil {
		return nil, &DecodeError{Field: "algorithm oid", Err: err}
	}
	priv, err := c.openField("private key", c.PrivateKey, c.PrivateKeySalt, c.PrivateKeyIV, pw)
	if err != nil {
		return nil, err
	}
	pub, err := decodeHex("public key", c.PublicKey)
	if err != nil {
		return nil, err
	}
	if err := w.CheckPair(priv, pub); err != nil {
		if errors.Is(err, keywrap.ErrKeyMismatch) {
			return nil, &KeyMismatchError{Part: "wrapping"}
		}
		return nil, &DecodeError{Field: "private key", Err: err}
	}

	signing, err := c.unlockSigningKey(pw)
	if err != nil {
		return nil, err
	}
	return &Keys{Wrapper: w, PrivateKey: priv, PublicKey: pub, Signing: signing}, nil
}

func (c *Container) unlockSigningKey(pw []byte) (envelope.SigningKey, error) {
	curve, err := ec.ByOID(c.CurveOID)
	if err != nil {
		return envelope.SigningKey{}, &DecodeError{Field: "curve oid", Err: err}
	}
	q, err := c.SigningPublicKey()
	if err != nil {
		return envelope.SigningKey{}, err
	}
	secret, err := c.openField("signing key", c.SignKey, c.SignKeySalt, c.SignKeyIV, pw)
	if err != nil {
		return envelope.SigningKey{}, err
	}

	d := bigint.FromBytes(secret)
	if !bigint.InRange(d, curve.N) || !ec.PublicKey(curve, d).Equal(q) {
		return envelope.SigningKey{}, &KeyMismatchError{Part: "signing"}
	}
	return envelope.SigningKey{Curve: curve, D: d, Q: q, Ref: c.signerRef()}, nil
}

// SigningPublicKey returns the stored signature verification point.
func (c *Container) SigningPublicKey() (*ec.Point, error) {
	curve, err := ec.ByOID(c.CurveOID)
	if err != nil {
		return nil, &DecodeError{Field: "curve oid", Err: err}
	}
	x, err := parseCoordinate("public x", c.SignPublicX)
	if err != nil {
		return nil, err
	}
	y, err := parseCoordinate("public y", c.SignPublicY)
	if err != nil {
		return nil, err
	}
	return ec.NewPoint(curve, x, y), nil
}

// WrappingPublicKey returns the decoded wrapping public key.
func (c *Container) WrappingPublicKey() ([]byte, error) {
	return decodeHex("public key", c.PublicKey)
}

// ID returns the parsed key ID, or uuid.Nil for containers without one.
func (c *Container) ID() uuid.UUID {
	id, err := uuid.Parse(c.KeyID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func (c *Container) signerRef() []byte {
	if id := c.ID(); id != uuid.Nil {
		return envelope.SignerRef(id)
	}
	return make([]byte, envelope.SignerRefSize)
}

func (c *Container) openField(name, sealed, salt, iv string, pw []byte) ([]byte, error) {
	data, err := decodeHex(name, sealed)
	if err != nil {
		return nil, err
	}
	s, err := decodeHex(name+" salt", salt)
	if err != nil {
		return nil, err
	}
	v, err := decodeHex(name+" iv", iv)
	if err != nil {
		return nil, err
	}
	if err := openSecret(pw, s, v, data); err != nil {
		return nil, &DecodeError{Field: name, Err: err}
	}
	return data, nil
}

func decodeHex(field, s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, &DecodeError{Field: field, Err: err}
	}
	return b, nil
}

func parseCoordinate(field, s string) (*big.Int, error) {
	if s == "" {
		return nil, &DecodeError{Field: field, Err: errors.New("empty")}
	}
	x, err := bigint.Parse(s)
	if err != nil {
		return nil, &DecodeError{Field: field, Err: err}
	}
	return x, nil
}

func random() io.Reader {
	if randReader != nil {
		return randReader
	}
	return rand.Reader
}
