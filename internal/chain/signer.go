package chain

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// ss58Prefix is the generic substrate address format.
const ss58Prefix = 42

// Signer is one account the client can sign with.
type Signer struct {
	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey
	address string
}

// NewSigner builds a signer from a 32-byte seed.
func NewSigner(seed []byte) (*Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &Signer{priv: priv, pub: pub, address: ss58Encode(pub)}, nil
}

// SignerFromSURI builds a signer from an account URI: either a 0x-prefixed
// 32-byte hex seed, or a derivation string like //Alice whose seed is a
// blake2b-256 digest of the string. The latter is for development chains
// only.
func SignerFromSURI(suri string) (*Signer, error) {
	if strings.HasPrefix(suri, "0x") {
		seed, err := hex.DecodeString(strings.TrimPrefix(suri, "0x"))
		if err != nil {
			return nil, fmt.Errorf("decode seed: %w", err)
		}
		return NewSigner(seed)
	}
	digest := blake2b.Sum256([]byte(suri))
	return NewSigner(digest[:])
}

// GenerateSigner creates a signer from a fresh random seed.
func GenerateSigner() (*Signer, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generate seed: %w", err)
	}
	return NewSigner(seed)
}

// Address returns the SS58-encoded address.
func (s *Signer) Address() string { return s.address }

// Public returns the raw public key bytes.
func (s *Signer) Public() []byte {
	out := make([]byte, len(s.pub))
	copy(out, s.pub)
	return out
}

func (s *Signer) Sign(msg []byte) []byte {
	return ed25519.Sign(s.priv, msg)
}

func (s *Signer) Verify(msg, sig []byte) bool {
	return ed25519.Verify(s.pub, msg, sig)
}

// ss58Encode renders a public key as an SS58 address: prefix byte, key,
// then the first two bytes of blake2b-512 over "SS58PRE" + payload.
func ss58Encode(pub []byte) string {
	payload := append([]byte{ss58Prefix}, pub...)
	hasher, _ := blake2b.New512(nil)
	hasher.Write([]byte("SS58PRE"))
	hasher.Write(payload)
	checksum := hasher.Sum(nil)
	return base58Encode(append(payload, checksum[:2]...))
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// base58Encode is a minimal bitcoin-alphabet base58 encoder; no library
// in the dependency set provides one.
func base58Encode(in []byte) string {
	zeros := 0
	for zeros < len(in) && in[zeros] == 0 {
		zeros++
	}
	num := make([]byte, len(in))
	copy(num, in)

	var out []byte
	for i := zeros; i < len(num); {
		rem := 0
		for j := i; j < len(num); j++ {
			acc := rem*256 + int(num[j])
			num[j] = byte(acc / 58)
			rem = acc % 58
		}
		out = append(out, base58Alphabet[rem])
		for i < len(num) && num[i] == 0 {
			i++
		}
	}
	for i := 0; i < zeros; i++ {
		out = append(out, base58Alphabet[0])
	}
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return string(out)
}
