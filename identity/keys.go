package identity

import (
	"encoding/hex"
	"strconv"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// SecretKey is a secp256k1 scalar in [1, n-1]. Call Zero once done with it.
type SecretKey [32]byte

// SecretKeyFromBytes validates b as a 32-byte scalar in curve-order range.
func SecretKeyFromBytes(b []byte) (SecretKey, error) {
	var sk SecretKey
	if len(b) != len(sk) {
		return sk, invalidKey("expected 32 bytes, got "+strconv.Itoa(len(b)), nil)
	}
	var s btcec.ModNScalar
	overflow := s.SetByteSlice(b)
	zero := s.IsZero()
	s.Zero()
	if overflow {
		return sk, invalidKey("scalar is not below the curve order", nil)
	}
	if zero {
		return sk, invalidKey("scalar is zero", nil)
	}
	copy(sk[:], b)
	return sk, nil
}

// ParseSecretKey decodes a 64-character hex secret key.
func ParseSecretKey(s string) (SecretKey, error) {
	if len(s) != 64 {
		return SecretKey{}, invalidKey("expected 64 hex characters, got "+strconv.Itoa(len(s)), nil)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return SecretKey{}, invalidKey("invalid hex", err)
	}
	defer clear(b)
	return SecretKeyFromBytes(b)
}

// GenerateSecretKey returns a fresh random key.
func GenerateSecretKey() (SecretKey, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return SecretKey{}, invalidKey("generate", err)
	}
	defer priv.Zero()
	b := priv.Serialize()
	defer clear(b)
	return SecretKeyFromBytes(b)
}

// Hex returns the lowercase hex form of the key.
func (sk SecretKey) Hex() string {
	return hex.EncodeToString(sk[:])
}

// Zero wipes the key material.
func (sk *SecretKey) Zero() {
	clear(sk[:])
}

// DerivePublicKey returns the x-only public key for sk, hex encoded.
func DerivePublicKey(sk SecretKey) (string, error) {
	pk, err := derive(sk)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(pk[:]), nil
}

// ParsePublicKey checks that s is a valid x-only public key and returns it
// unchanged.
func ParsePublicKey(s string) (string, error) {
	if len(s) != 64 {
		return "", invalidKey("public key: expected 64 hex characters, got "+strconv.Itoa(len(s)), nil)
	}
	b, err := hex.DecodeString(s)
	if err != nil || hex.EncodeToString(b) != s {
		return "", invalidKey("public key: must be lowercase hex", err)
	}
	if _, err := schnorr.ParsePubKey(b); err != nil {
		return "", invalidKey("public key is not on the curve", err)
	}
	return s, nil
}

func derive(sk SecretKey) ([32]byte, error) {
	var out [32]byte
	if _, err := SecretKeyFromBytes(sk[:]); err != nil {
		return out, err
	}
	priv, pub := btcec.PrivKeyFromBytes(sk[:])
	defer priv.Zero()
	copy(out[:], schnorr.SerializePubKey(pub))
	return out, nil
}
