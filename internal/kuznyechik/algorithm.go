package kuznyechik

import (
	"fmt"
	"sort"
	"strings"
)

// RoundKeyCount is the number of round keys per schedule.
const RoundKeyCount = 10

// Direction tells which schedule a RoundKeys value holds.
type Direction int

const (
	// Encryption round keys.
	Encryption Direction = iota + 1
	// Decryption round keys.
	Decryption
)

func (d Direction) String() string {
	switch d {
	case Encryption:
		return "encrypt"
	case Decryption:
		return "decrypt"
	default:
		return "unkeyed"
	}
}

// RoundKeys is a derived key schedule. The zero value is unkeyed.
type RoundKeys struct {
	keys      [RoundKeyCount]Block128
	direction Direction
}

// Key returns round key i.
func (rk *RoundKeys) Key(i int) Block128 {
	return rk.keys[i]
}

// Direction returns the schedule direction.
func (rk *RoundKeys) Direction() Direction {
	return rk.direction
}

// Wipe clears the key material.
func (rk *RoundKeys) Wipe() {
	rk.keys = [RoundKeyCount]Block128{}
	rk.direction = 0
}

func (rk *RoundKeys) mustBeKeyed() {
	if rk == nil || rk.direction == 0 {
		panic(ErrNotKeyed)
	}
}

// Algorithm is the capability set shared by the cipher variants.
type Algorithm interface {
	// Name identifies the algorithm.
	Name() string
	// KeySize returns the master key size in bytes.
	KeySize() int
	// BlockSize returns the block size in bytes.
	BlockSize() int
	// EncryptKeys derives the encryption schedule from a 32-byte key.
	EncryptKeys(key []byte) (*RoundKeys, error)
	// DecryptKeys derives the decryption schedule from a 32-byte key.
	DecryptKeys(key []byte) (*RoundKeys, error)
	// Encrypt enciphers one block.
	Encrypt(b Block128, rk *RoundKeys) Block128
	// Decrypt deciphers one block.
	Decrypt(b Block128, rk *RoundKeys) (Block128, error)
}

var algorithms = map[string]Algorithm{
	Reference{}.Name(): Reference{},
	Alternate{}.Name(): Alternate{},
}

// ByName returns a registered algorithm. Lookup is case insensitive.
func ByName(name string) (Algorithm, error) {
	alg, ok := algorithms[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	return alg, nil
}

// Names lists the registered algorithm names in sorted order.
func Names() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func checkKey(key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), KeySize)
	}
	return nil
}
