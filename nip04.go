package main

import (
	"fmt"
	"net/http"

	"github.com/nbd-wtf/go-nostr/nip04"

	"github.com/joelklabo/nostr-api/identity"
)

type nip04Request struct {
	SK      string `json:"sk"`
	PK      string `json:"pk"`
	Content string `json:"content"`
}

var nip04Routes = map[string]http.HandlerFunc{
	"encrypt": nip04Handler("encrypt", nip04.Encrypt),
	"decrypt": nip04Handler("decrypt", nip04.Decrypt),
}

// handleNIP04 serves POST /api/nip04/{action}. The shared secret is the ECDH
// x coordinate of sk and pk; the payload is AES-256-CBC in NIP-04 format.
var handleNIP04 = dispatch(nip04Routes)

func nip04Handler(key string, op func(string, []byte) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		var req nip04Request
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		secret, err := sharedSecret(req.SK, req.PK)
		if err != nil {
			writeFailure(w, err)
			return
		}
		out, err := op(req.Content, secret)
		clear(secret)
		if err != nil {
			writeFailure(w, badRequest(fmt.Errorf("nip04 %s: %w", key, err)))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{key: out})
	}
}

func sharedSecret(skHex, pk string) ([]byte, error) {
	sk, err := identity.ParseSecretKey(skHex)
	if err != nil {
		return nil, err
	}
	defer sk.Zero()
	if _, err := identity.ParsePublicKey(pk); err != nil {
		return nil, err
	}
	secret, err := nip04.ComputeSharedSecret(pk, sk.Hex())
	if err != nil {
		return nil, fmt.Errorf("compute shared secret: %w", err)
	}
	return secret, nil
}
