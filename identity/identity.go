package identity

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// SignEvent returns a signed copy of evt: pubkey is set from sk, the id is
// recomputed, and sig is a BIP-340 signature over the id. The nonce is
// derived from the key and the id, so the same input always yields the same
// signature. evt itself is not modified.
func SignEvent(evt Event, sk SecretKey) (Event, error) {
	pk, err := derive(sk)
	if err != nil {
		return Event{}, err
	}

	out := evt
	out.Tags = evt.Tags.clone()
	out.PubKey = hex.EncodeToString(pk[:])

	id, err := Hash(&out)
	if err != nil {
		return Event{}, err
	}

	priv, _ := btcec.PrivKeyFromBytes(sk[:])
	defer priv.Zero()
	sig, err := schnorr.Sign(priv, id[:])
	if err != nil {
		return Event{}, invalidKey("sign", err)
	}

	out.ID = hex.EncodeToString(id[:])
	out.Sig = hex.EncodeToString(sig.Serialize())
	return out, nil
}

// VerifyEvent reports whether evt carries the id of its own content and a
// valid signature over that id. A well-formed event that fails either check
// yields false with a nil error; only structural problems return an error.
func VerifyEvent(evt *Event) (bool, error) {
	pk, err := decodeFixedHex("pubkey", evt.PubKey, 32)
	if err != nil {
		return false, err
	}
	claimed, err := decodeFixedHex("id", evt.ID, 32)
	if err != nil {
		return false, err
	}
	rawSig, err := decodeFixedHex("sig", evt.Sig, 64)
	if err != nil {
		return false, err
	}

	id, err := Hash(evt)
	if err != nil {
		return false, err
	}
	if [32]byte(claimed) != id {
		return false, nil
	}

	return verifySignature([32]byte(pk), id, [64]byte(rawSig)), nil
}

// CheckID reports whether evt.ID matches its content.
func CheckID(evt *Event) (bool, error) {
	claimed, err := decodeFixedHex("id", evt.ID, 32)
	if err != nil {
		return false, err
	}
	id, err := Hash(evt)
	if err != nil {
		return false, err
	}
	return [32]byte(claimed) == id, nil
}

func verifySignature(pk, msg [32]byte, sig [64]byte) bool {
	pub, err := schnorr.ParsePubKey(pk[:])
	if err != nil {
		return false
	}
	s, err := schnorr.ParseSignature(sig[:])
	if err != nil {
		return false
	}
	return s.Verify(msg[:], pub)
}
