package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/joelklabo/nostr-api/identity"
)

const maxListLimit = 500

var (
	transport     RelayTransport
	defaultRelays = []string{
		"wss://relay.damus.io",
		"wss://nos.lol",
		"wss://relay.primal.net",
	}
	now = time.Now
)

// eventInput is an event as callers send it. Pointer fields record whether
// the caller sent them; hash, sign and publish fill the gaps, verify does not.
type eventInput struct {
	ID        string        `json:"id"`
	PubKey    string        `json:"pubkey"`
	CreatedAt *int64        `json:"created_at"`
	Kind      *int          `json:"kind"`
	Tags      identity.Tags `json:"tags"`
	Content   *string       `json:"content"`
	Sig       string        `json:"sig"`
}

// event fills a missing created_at with the current time and any other
// missing field with its zero value.
func (in eventInput) event() identity.Event {
	evt := identity.Event{
		ID:        in.ID,
		PubKey:    in.PubKey,
		CreatedAt: identity.Timestamp(now().Unix()),
		Tags:      in.Tags,
		Sig:       in.Sig,
	}
	if in.CreatedAt != nil {
		evt.CreatedAt = identity.Timestamp(*in.CreatedAt)
	}
	if in.Kind != nil {
		evt.Kind = *in.Kind
	}
	if in.Content != nil {
		evt.Content = *in.Content
	}
	return evt
}

// missing names the first field that was absent or null, or "" if none.
func (in eventInput) missing() string {
	switch {
	case in.CreatedAt == nil:
		return "created_at"
	case in.Kind == nil:
		return "kind"
	case in.Tags == nil:
		return "tags"
	case in.Content == nil:
		return "content"
	}
	return ""
}

type eventRequest struct {
	Event  eventInput   `json:"event"`
	SK     string       `json:"sk"`
	Relay  string       `json:"relay"`
	Relays []string     `json:"relays"`
	Filter nostr.Filter `json:"filter"`
}

var eventRoutes = map[string]http.HandlerFunc{
	"hash":    handleEventHash,
	"sign":    handleEventSign,
	"verify":  handleEventVerify,
	"publish": handleEventPublish,
	"get":     handleEventGet,
	"list":    handleEventList,
}

// handleEvent serves POST /api/event/{action}.
var handleEvent = dispatch(eventRoutes)

func readEventRequest(w http.ResponseWriter, r *http.Request) (eventRequest, bool) {
	var req eventRequest
	if !requireMethod(w, r, http.MethodPost) {
		return req, false
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

func handleEventHash(w http.ResponseWriter, r *http.Request) {
	req, ok := readEventRequest(w, r)
	if !ok {
		return
	}
	evt := req.Event.event()
	hash, err := identity.ComputeID(&evt)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"hash": hash})
}

func handleEventSign(w http.ResponseWriter, r *http.Request) {
	req, ok := readEventRequest(w, r)
	if !ok {
		return
	}
	signed, err := signRequest(req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sign":  signed.Sig,
		"event": signed,
	})
}

// signRequest signs req.Event with req.SK and wipes the key afterwards.
func signRequest(req eventRequest) (identity.Event, error) {
	sk, err := identity.ParseSecretKey(req.SK)
	if err != nil {
		return identity.Event{}, err
	}
	defer sk.Zero()
	return identity.SignEvent(req.Event.event(), sk)
}

// handleEventPublish signs the event with sk and sends it to the requested
// relays. Without sk the event must already be signed and valid.
func handleEventPublish(w http.ResponseWriter, r *http.Request) {
	req, ok := readEventRequest(w, r)
	if !ok {
		return
	}
	urls, err := relaysFor(req.Relay, req.Relays)
	if err != nil {
		writeFailure(w, err)
		return
	}

	var evt identity.Event
	if req.SK != "" {
		evt, err = signRequest(req)
		if err != nil {
			writeFailure(w, err)
			return
		}
	} else {
		evt = req.Event.event()
		valid, err := identity.VerifyEvent(&evt)
		if err != nil {
			writeFailure(w, err)
			return
		}
		if !valid {
			writeError(w, http.StatusBadRequest, "event is not signed and no sk was given")
			return
		}
	}

	results, err := transport.Publish(r.Context(), urls, evt)
	if err != nil {
		status := http.StatusBadGateway
		if !errors.Is(err, ErrNoRelayAccepted) {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, map[string]interface{}{
			"error":  err.Error(),
			"event":  evt,
			"relays": results,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "ok",
		"event":   evt,
		"relays":  results,
	})
}

func handleEventGet(w http.ResponseWriter, r *http.Request) {
	req, ok := readEventRequest(w, r)
	if !ok {
		return
	}
	urls, err := relaysFor(req.Relay, req.Relays)
	if err != nil {
		writeFailure(w, err)
		return
	}
	evt, err := transport.Fetch(r.Context(), urls, req.Filter)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"event": evt})
}

func handleEventList(w http.ResponseWriter, r *http.Request) {
	req, ok := readEventRequest(w, r)
	if !ok {
		return
	}
	urls, err := relaysFor(req.Relay, req.Relays)
	if err != nil {
		writeFailure(w, err)
		return
	}
	filter := req.Filter
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	events, err := transport.List(r.Context(), urls, filter)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// relaysFor picks the relays a request talks to: the explicit ones if any,
// otherwise defaultRelays.
func relaysFor(one string, many []string) ([]string, error) {
	raw := many
	if one != "" {
		raw = append([]string{one}, many...)
	}
	if len(raw) == 0 {
		return defaultRelays, nil
	}
	urls := make([]string, 0, len(raw))
	for _, u := range raw {
		if scheme, _, ok := strings.Cut(u, "://"); ok && scheme != "ws" && scheme != "wss" {
			return nil, badRequest(fmt.Errorf("invalid relay url %q: scheme must be ws or wss", u))
		}
		norm := nostr.NormalizeURL(u)
		if !strings.HasPrefix(norm, "wss://") && !strings.HasPrefix(norm, "ws://") {
			return nil, badRequest(fmt.Errorf("invalid relay url %q", u))
		}
		urls = append(urls, norm)
	}
	return urls, nil
}
