package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip05"

	"github.com/joelklabo/nostr-api/identity"
)

const (
	nip05Timeout  = 5 * time.Second
	maxNIP05Batch = 50
)

// queryProfile fetches name@domain/.well-known/nostr.json. Tests swap it out.
var queryProfile = nip05.QueryIdentifier

// NIP05Profile is a resolved NIP-05 identifier.
type NIP05Profile struct {
	PubKey string   `json:"pubkey"`
	Relays []string `json:"relays"`
}

// resolveNIP05 resolves a NIP-05 identifier (name@domain) to a pubkey and the
// relays the domain advertises for it.
func resolveNIP05(ctx context.Context, user string) (NIP05Profile, error) {
	name, domain, ok := strings.Cut(user, "@")
	if !ok {
		return NIP05Profile{}, badRequest(errors.New("invalid NIP-05 identifier: must be name@domain"))
	}
	if name == "" || domain == "" {
		return NIP05Profile{}, badRequest(errors.New("invalid NIP-05 identifier: name and domain required"))
	}

	ctx, cancel := context.WithTimeout(ctx, nip05Timeout)
	defer cancel()
	pp, err := queryProfile(ctx, user)
	if err != nil {
		return NIP05Profile{}, fmt.Errorf("NIP-05 resolution failed: %w", err)
	}
	if pp == nil {
		return NIP05Profile{}, fmt.Errorf("name %q not found in NIP-05 response", name)
	}
	if _, err := identity.ParsePublicKey(pp.PublicKey); err != nil {
		return NIP05Profile{}, fmt.Errorf("NIP-05 response: %w", err)
	}

	relays := pp.Relays
	if relays == nil {
		relays = []string{}
	}
	return NIP05Profile{PubKey: pp.PublicKey, Relays: relays}, nil
}

// handleNIP05Profile handles GET /api/nip05/profile?user=name@domain.
func handleNIP05Profile(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "user parameter required (e.g. user@domain.com)")
		return
	}
	profile, err := resolveNIP05(r.Context(), user)
	if err != nil {
		// a domain that times out is an upstream failure, anything else the caller's
		if !errors.Is(err, context.DeadlineExceeded) {
			err = badRequest(err)
		}
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// handleNIP05Batch handles POST /api/nip05/batch {"users": [...]}, resolving
// the identifiers concurrently. Per-identifier failures are reported inline.
func handleNIP05Batch(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Users []string `json:"users"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Users) == 0 {
		writeError(w, http.StatusBadRequest, "users array required")
		return
	}
	if len(req.Users) > maxNIP05Batch {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("max %d users per request", maxNIP05Batch))
		return
	}

	results := make([]map[string]interface{}, len(req.Users))
	var wg sync.WaitGroup
	for i, user := range req.Users {
		wg.Add(1)
		go func(idx int, user string) {
			defer wg.Done()
			entry := map[string]interface{}{"user": user}
			profile, err := resolveNIP05(r.Context(), user)
			if err != nil {
				entry["error"] = err.Error()
			} else {
				entry["pubkey"] = profile.PubKey
				entry["relays"] = profile.Relays
			}
			results[idx] = entry
		}(i, user)
	}
	wg.Wait()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// handleNIP05Reverse handles GET /api/nip05/reverse?pubkey=<hex|npub>. It
// reads the pubkey's kind 0 profile from relays, takes its nip05 field and
// checks that the identifier resolves back to the same pubkey.
func handleNIP05Reverse(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("pubkey")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "pubkey parameter required (hex or npub)")
		return
	}
	pubkey := raw
	if strings.HasPrefix(raw, "npub1") {
		var err error
		if pubkey, err = decodeBech32As(raw, "npub"); err != nil {
			writeFailure(w, err)
			return
		}
	}
	if _, err := identity.ParsePublicKey(pubkey); err != nil {
		writeFailure(w, err)
		return
	}

	resp := map[string]interface{}{
		"pubkey":   pubkey,
		"nip05":    nil,
		"verified": false,
	}

	user, name, err := fetchProfileNIP05(r.Context(), pubkey)
	if name != "" {
		resp["display_name"] = name
	}
	if err != nil {
		resp["error"] = err.Error()
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp["nip05"] = user

	profile, err := resolveNIP05(r.Context(), user)
	switch {
	case err != nil:
		resp["verify_error"] = err.Error()
	case profile.PubKey != pubkey:
		resp["verify_error"] = fmt.Sprintf("%s resolves to %s", user, profile.PubKey)
	default:
		resp["verified"] = true
		resp["relays"] = profile.Relays
	}
	writeJSON(w, http.StatusOK, resp)
}

// fetchProfileNIP05 reads the newest kind 0 event of pubkey and returns its
// nip05 field and display name.
func fetchProfileNIP05(ctx context.Context, pubkey string) (user, name string, err error) {
	evt, err := transport.Fetch(ctx, defaultRelays, nostr.Filter{
		Kinds:   []int{nostr.KindProfileMetadata},
		Authors: []string{pubkey},
	})
	if err != nil {
		return "", "", fmt.Errorf("fetch profile: %w", err)
	}
	if evt == nil {
		return "", "", errors.New("no kind 0 profile found on relays")
	}

	var profile struct {
		NIP05       string `json:"nip05"`
		DisplayName string `json:"display_name"`
		Name        string `json:"name"`
	}
	if err := json.Unmarshal([]byte(evt.Content), &profile); err != nil {
		return "", "", fmt.Errorf("invalid profile JSON: %w", err)
	}
	name = profile.DisplayName
	if name == "" {
		name = profile.Name
	}
	if profile.NIP05 == "" {
		return "", name, errors.New("profile has no nip05 field")
	}
	return profile.NIP05, name, nil
}
