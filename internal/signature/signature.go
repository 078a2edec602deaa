package signature

import (
	"crypto/ed25519"
	"strconv"

	"golang.org/x/crypto/sha3"

	"AssetWarden/internal/address"
)

const (
	// Size is the length of an ed25519 signature.
	Size = ed25519.SignatureSize

	// messagePrefix is prepended by MultiversX wallets before hashing a message.
	messagePrefix = "\x17Elrond Signed Message:\n"
)

// Verifier checks a signature produced by the wallet behind an address.
type Verifier interface {
	Verify(addr string, message, sig []byte) bool
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(addr string, message, sig []byte) bool

// Verify calls f.
func (f VerifierFunc) Verify(addr string, message, sig []byte) bool {
	return f(addr, message, sig)
}

// Wallet verifies signatures made with the MultiversX SignableMessage scheme.
type Wallet struct{}

// Verify returns false for malformed addresses or signatures.
func (Wallet) Verify(addr string, message, sig []byte) bool {
	if len(sig) != Size {
		return false
	}

	a, err := address.Parse(addr)
	if err != nil {
		return false
	}

	return ed25519.Verify(a.PublicKey(), SerializeForSigning(message), sig)
}

// SerializeForSigning returns the digest a wallet signs for message:
// keccak256(prefix || decimal(len(message)) || message).
func SerializeForSigning(message []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(messagePrefix))
	h.Write([]byte(strconv.Itoa(len(message))))
	h.Write(message)

	return h.Sum(nil)
}

// Sign signs message the way a MultiversX wallet does.
func Sign(priv ed25519.PrivateKey, message []byte) []byte {
	return ed25519.Sign(priv, SerializeForSigning(message))
}
