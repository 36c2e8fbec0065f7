// Package identity computes and checks the cryptographic identity of Nostr
// events: the canonical serialization, the content-addressed id, BIP-340
// Schnorr signatures over that id, and the key derivation behind them.
//
// Every function here is pure. Nothing is cached and nothing is logged, so
// all of it is safe to call from any number of goroutines.
package identity

import (
	"encoding/json"
	"fmt"
)

// Timestamp is a unix time in seconds.
type Timestamp int64

// Tag is a single ordered list of strings, e.g. ["p", "<hex pubkey>"].
type Tag []string

// UnmarshalJSON accepts only an array of JSON strings. Plain decoding would
// turn a null element into "" and a null tag into an empty one, which changes
// the id.
func (t *Tag) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return malformed("tags", "tag must be an array of strings", err)
	}
	if raw == nil {
		return malformed("tags", "tag must be an array, got null", nil)
	}
	out := make(Tag, len(raw))
	for i, r := range raw {
		if len(r) == 0 || r[0] != '"' {
			return malformed("tags", fmt.Sprintf("element %d must be a string, got %s", i, r), nil)
		}
		if err := json.Unmarshal(r, &out[i]); err != nil {
			return malformed("tags", fmt.Sprintf("element %d", i), err)
		}
	}
	*t = out
	return nil
}

// Tags keeps tag order; order is part of the event id.
type Tags []Tag

// Event is a Nostr event as it travels over the wire.
type Event struct {
	ID        string    `json:"id"`
	PubKey    string    `json:"pubkey"`
	CreatedAt Timestamp `json:"created_at"`
	Kind      int       `json:"kind"`
	Tags      Tags      `json:"tags"`
	Content   string    `json:"content"`
	Sig       string    `json:"sig"`
}

func (t Tags) clone() Tags {
	if t == nil {
		return Tags{}
	}
	out := make(Tags, len(t))
	for i, tag := range t {
		out[i] = make(Tag, len(tag))
		copy(out[i], tag)
	}
	return out
}
