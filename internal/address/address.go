package address

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

const (
	// HRP is the bech32 human-readable part of MultiversX addresses.
	HRP = "erd"

	// Size is the length of a decoded address (an ed25519 public key).
	Size = 32

	// contractPrefixLen is the number of leading zero bytes marking a smart contract.
	contractPrefixLen = 8
)

// ErrInvalid is returned for strings that are not MultiversX addresses.
var ErrInvalid = errors.New("invalid address")

// Address is a decoded MultiversX address.
type Address [Size]byte

// Parse decodes an erd1... bech32 string.
func Parse(s string) (Address, error) {
	var a Address

	hrp, data, err := bech32.DecodeToBase256(s)
	if err != nil {
		return a, fmt.Errorf("%w %q:\n%v", ErrInvalid, s, err)
	}

	if hrp != HRP {
		return a, fmt.Errorf("%w %q: prefix %q, want %q", ErrInvalid, s, hrp, HRP)
	}

	if len(data) != Size {
		return a, fmt.Errorf("%w %q: %d bytes, want %d", ErrInvalid, s, len(data), Size)
	}

	copy(a[:], data)

	return a, nil
}

// FromPublicKey builds an address from an ed25519 public key.
func FromPublicKey(pub ed25519.PublicKey) (Address, error) {
	var a Address

	if len(pub) != ed25519.PublicKeySize {
		return a, fmt.Errorf("%w: public key is %d bytes", ErrInvalid, len(pub))
	}

	copy(a[:], pub)

	return a, nil
}

// String encodes the address as bech32.
func (a Address) String() string {
	s, err := bech32.EncodeFromBase256(HRP, a[:])
	if err != nil {
		// 32 bytes under a fixed prefix always encode
		panic(err)
	}

	return s
}

// PublicKey returns the ed25519 public key behind the address.
func (a Address) PublicKey() ed25519.PublicKey {
	pub := make(ed25519.PublicKey, Size)
	copy(pub, a[:])
	return pub
}

// IsContract reports whether the address belongs to a smart contract.
// Contract addresses start with eight zero bytes.
func (a Address) IsContract() bool {
	for _, b := range a[:contractPrefixLen] {
		if b != 0 {
			return false
		}
	}

	return true
}

// IsContract parses s and reports whether it is a contract address.
func IsContract(s string) (bool, error) {
	a, err := Parse(s)
	if err != nil {
		return false, err
	}

	return a.IsContract(), nil
}
