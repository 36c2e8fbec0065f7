package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"

	"github.com/joelklabo/nostr-api/identity"
)

// ProfilePointer, EventPointer and AddressPointer are the JSON shapes of the
// nprofile, nevent and naddr payloads.
type ProfilePointer struct {
	PubKey string   `json:"pubkey"`
	Relays []string `json:"relays,omitempty"`
}

type EventPointer struct {
	ID     string   `json:"id"`
	Relays []string `json:"relays,omitempty"`
	Author string   `json:"author,omitempty"`
	Kind   int      `json:"kind,omitempty"`
}

type AddressPointer struct {
	Identifier string   `json:"identifier"`
	PubKey     string   `json:"pubkey"`
	Kind       int      `json:"kind"`
	Relays     []string `json:"relays,omitempty"`
}

type nip19Request struct {
	N       string          `json:"n"`
	SK      string          `json:"sk"`
	PK      string          `json:"pk"`
	Note    string          `json:"note"`
	Profile *ProfilePointer `json:"profile"`
	Event   *EventPointer   `json:"event"`
	Addr    *AddressPointer `json:"addr"`
	Relay   string          `json:"relay"`
}

var nip19Routes = map[string]http.HandlerFunc{
	"decode":   nip19Handler("", decodeNIP19),
	"nsec":     nip19Handler("nsec", encodeNsec),
	"npub":     nip19Handler("npub", encodeNpub),
	"note":     nip19Handler("note", encodeNote),
	"nprofile": nip19Handler("nprofile", encodeNprofile),
	"nevent":   nip19Handler("nevent", encodeNevent),
	"naddr":    nip19Handler("naddr", encodeNaddr),
	"nrelay":   nip19Handler("nrelay", encodeNrelay),
}

// handleNIP19 serves POST /api/nip19/{action}.
var handleNIP19 = dispatch(nip19Routes)

// nip19Handler wraps an encoder. The result is returned under key, or as
// the whole body when key is empty.
func nip19Handler(key string, fn func(nip19Request) (interface{}, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		var req nip19Request
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		out, err := fn(req)
		if err != nil {
			writeFailure(w, err)
			return
		}
		if key == "" {
			writeJSON(w, http.StatusOK, out)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{key: out})
	}
}

// DecodeResponse is the body of /api/nip19/decode.
type DecodeResponse struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func decodeNIP19(req nip19Request) (interface{}, error) {
	if req.N == "" {
		return nil, badRequest(errors.New("n is required"))
	}
	if strings.HasPrefix(strings.ToLower(req.N), "nrelay1") {
		relay, err := decodeNrelay(req.N)
		if err != nil {
			return nil, badRequest(err)
		}
		return DecodeResponse{Type: "nrelay", Data: relay}, nil
	}

	prefix, value, err := nip19.Decode(req.N)
	if err != nil {
		return nil, badRequest(fmt.Errorf("nip19 decode: %w", err))
	}
	resp := DecodeResponse{Type: prefix}
	switch v := value.(type) {
	case string:
		resp.Data = v
	case nostr.ProfilePointer:
		resp.Data = ProfilePointer{PubKey: v.PublicKey, Relays: v.Relays}
	case *nostr.ProfilePointer:
		resp.Data = ProfilePointer{PubKey: v.PublicKey, Relays: v.Relays}
	case nostr.EventPointer:
		resp.Data = EventPointer{ID: v.ID, Relays: v.Relays, Author: v.Author, Kind: v.Kind}
	case *nostr.EventPointer:
		resp.Data = EventPointer{ID: v.ID, Relays: v.Relays, Author: v.Author, Kind: v.Kind}
	case nostr.EntityPointer:
		resp.Data = AddressPointer{Identifier: v.Identifier, PubKey: v.PublicKey, Kind: v.Kind, Relays: v.Relays}
	case *nostr.EntityPointer:
		resp.Data = AddressPointer{Identifier: v.Identifier, PubKey: v.PublicKey, Kind: v.Kind, Relays: v.Relays}
	default:
		resp.Data = v
	}
	return resp, nil
}

func encodeNsec(req nip19Request) (interface{}, error) {
	sk, err := identity.ParseSecretKey(req.SK)
	if err != nil {
		return nil, err
	}
	defer sk.Zero()
	return nip19.EncodePrivateKey(sk.Hex())
}

func encodeNpub(req nip19Request) (interface{}, error) {
	pk, err := identity.ParsePublicKey(req.PK)
	if err != nil {
		return nil, err
	}
	return nip19.EncodePublicKey(pk)
}

func encodeNote(req nip19Request) (interface{}, error) {
	if err := checkHex32("note", req.Note); err != nil {
		return nil, err
	}
	return nip19.EncodeNote(req.Note)
}

func encodeNprofile(req nip19Request) (interface{}, error) {
	if req.Profile == nil {
		return nil, badRequest(errors.New("profile is required"))
	}
	pk, err := identity.ParsePublicKey(req.Profile.PubKey)
	if err != nil {
		return nil, err
	}
	return nip19.EncodeProfile(pk, req.Profile.Relays)
}

func encodeNevent(req nip19Request) (interface{}, error) {
	if req.Event == nil {
		return nil, badRequest(errors.New("event is required"))
	}
	if err := checkHex32("event.id", req.Event.ID); err != nil {
		return nil, err
	}
	if req.Event.Author != "" {
		if _, err := identity.ParsePublicKey(req.Event.Author); err != nil {
			return nil, err
		}
	}
	return nip19.EncodeEvent(req.Event.ID, req.Event.Relays, req.Event.Author)
}

func encodeNaddr(req nip19Request) (interface{}, error) {
	if req.Addr == nil {
		return nil, badRequest(errors.New("addr is required"))
	}
	pk, err := identity.ParsePublicKey(req.Addr.PubKey)
	if err != nil {
		return nil, err
	}
	return nip19.EncodeEntity(pk, req.Addr.Kind, req.Addr.Identifier, req.Addr.Relays)
}

func encodeNrelay(req nip19Request) (interface{}, error) {
	if req.Relay == "" {
		return nil, badRequest(errors.New("relay is required"))
	}
	s, err := encodeNrelayURL(req.Relay)
	if err != nil {
		return nil, badRequest(err)
	}
	return s, nil
}

// encodeNrelayURL builds an nrelay string: bech32 over a single TLV record of
// type 0 holding the relay URL.
func encodeNrelayURL(relay string) (string, error) {
	if len(relay) > 255 {
		return "", fmt.Errorf("relay url longer than 255 bytes")
	}
	tlv := make([]byte, 0, len(relay)+2)
	tlv = append(tlv, 0, byte(len(relay)))
	tlv = append(tlv, relay...)
	data, err := bech32.ConvertBits(tlv, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert bits: %w", err)
	}
	return bech32.Encode("nrelay", data)
}

func decodeNrelay(s string) (string, error) {
	hrp, data, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return "", fmt.Errorf("bech32 decode: %w", err)
	}
	if hrp != "nrelay" {
		return "", errTypeMismatch
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", fmt.Errorf("convert bits: %w", err)
	}
	for len(raw) >= 2 {
		typ, size := raw[0], int(raw[1])
		if len(raw) < 2+size {
			return "", fmt.Errorf("truncated tlv record")
		}
		if typ == 0 {
			return string(raw[2 : 2+size]), nil
		}
		raw = raw[2+size:]
	}
	return "", fmt.Errorf("no relay in nrelay")
}

// checkHex32 accepts exactly 64 lowercase hex characters.
func checkHex32(field, s string) error {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 || hex.EncodeToString(b) != s {
		return badRequest(fmt.Errorf("%s: expected 64 lowercase hex characters", field))
	}
	return nil
}
