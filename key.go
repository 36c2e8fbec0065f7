package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nbd-wtf/go-nostr/nip19"

	"github.com/joelklabo/nostr-api/identity"
)

var errTypeMismatch = errors.New("type error")

// KeyResponse describes a key pair in raw and bech32 forms. Secret fields are
// only present when the caller supplied (or asked us to generate) a secret.
type KeyResponse struct {
	SK   string `json:"sk,omitempty"`
	Nsec string `json:"nsec,omitempty"`
	PK   string `json:"pk"`
	Npub string `json:"npub"`
}

var keyRoutes = map[string]http.HandlerFunc{
	"generate":  handleKeyGenerate,
	"from_sk":   keyQueryHandler("sk", keysFromSK),
	"from_nsec": keyQueryHandler("nsec", keysFromNsec),
	"from_pk":   keyQueryHandler("pk", keysFromPK),
	"from_npub": keyQueryHandler("npub", keysFromNpub),
}

// handleKey serves GET /api/key/{action}.
var handleKey = dispatch(keyRoutes)

func handleKeyGenerate(w http.ResponseWriter, r *http.Request) {
	sk, err := identity.GenerateSecretKey()
	if err != nil {
		writeFailure(w, err)
		return
	}
	defer sk.Zero()

	keys, err := keysFromSecret(sk)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func keyQueryHandler(param string, derive func(string) (KeyResponse, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys, err := derive(r.URL.Query().Get(param))
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, keys)
	}
}

// handleKeyFrom serves GET /api/key/from?sk=|nsec=|pk=|npub=. The first
// non-empty parameter in that order wins.
func handleKeyFrom(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		keys KeyResponse
		err  error
	)
	switch {
	case q.Get("sk") != "":
		keys, err = keysFromSK(q.Get("sk"))
	case q.Get("nsec") != "":
		keys, err = keysFromNsec(q.Get("nsec"))
	case q.Get("pk") != "":
		keys, err = keysFromPK(q.Get("pk"))
	case q.Get("npub") != "":
		keys, err = keysFromNpub(q.Get("npub"))
	default:
		err = badRequest(errors.New("one of sk, nsec, pk or npub is required"))
	}
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func keysFromSK(skHex string) (KeyResponse, error) {
	sk, err := identity.ParseSecretKey(skHex)
	if err != nil {
		return KeyResponse{}, err
	}
	defer sk.Zero()
	return keysFromSecret(sk)
}

func keysFromNsec(nsec string) (KeyResponse, error) {
	skHex, err := decodeBech32As(nsec, "nsec")
	if err != nil {
		return KeyResponse{}, err
	}
	keys, err := keysFromSK(skHex)
	if err != nil {
		return KeyResponse{}, err
	}
	keys.Nsec = nsec
	return keys, nil
}

func keysFromPK(pk string) (KeyResponse, error) {
	if _, err := identity.ParsePublicKey(pk); err != nil {
		return KeyResponse{}, err
	}
	npub, err := nip19.EncodePublicKey(pk)
	if err != nil {
		return KeyResponse{}, fmt.Errorf("encode npub: %w", err)
	}
	return KeyResponse{PK: pk, Npub: npub}, nil
}

func keysFromNpub(npub string) (KeyResponse, error) {
	pk, err := decodeBech32As(npub, "npub")
	if err != nil {
		return KeyResponse{}, err
	}
	if _, err := identity.ParsePublicKey(pk); err != nil {
		return KeyResponse{}, err
	}
	return KeyResponse{PK: pk, Npub: npub}, nil
}

func keysFromSecret(sk identity.SecretKey) (KeyResponse, error) {
	pk, err := identity.DerivePublicKey(sk)
	if err != nil {
		return KeyResponse{}, err
	}
	skHex := sk.Hex()
	nsec, err := nip19.EncodePrivateKey(skHex)
	if err != nil {
		return KeyResponse{}, fmt.Errorf("encode nsec: %w", err)
	}
	npub, err := nip19.EncodePublicKey(pk)
	if err != nil {
		return KeyResponse{}, fmt.Errorf("encode npub: %w", err)
	}
	return KeyResponse{SK: skHex, Nsec: nsec, PK: pk, Npub: npub}, nil
}

// decodeBech32As decodes a bech32 key string and insists on its prefix.
func decodeBech32As(s, want string) (string, error) {
	prefix, value, err := nip19.Decode(s)
	if err != nil {
		return "", badRequest(fmt.Errorf("nip19 decode: %w", err))
	}
	hexValue, ok := value.(string)
	if prefix != want || !ok {
		return "", badRequest(errTypeMismatch)
	}
	return hexValue, nil
}
