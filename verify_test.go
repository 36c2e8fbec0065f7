package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nbd-wtf/go-nostr"
)

func verifyRequest(t *testing.T, ev nostr.Event) VerifyResponse {
	t.Helper()
	body, _ := json.Marshal(map[string]interface{}{"event": ev})
	req := httptest.NewRequest("POST", "/api/event/verify", bytes.NewBuffer(body))
	w := httptest.NewRecorder()
	handleEventVerify(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp VerifyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestVerifyMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/event/verify", nil)
	w := httptest.NewRecorder()
	handleEventVerify(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestVerifyInvalidJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/event/verify", bytes.NewBufferString("not json"))
	w := httptest.NewRecorder()
	handleEventVerify(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestVerifyBodyTooLarge(t *testing.T) {
	old := maxBodyBytes
	maxBodyBytes = 64
	defer func() { maxBodyBytes = old }()

	body := `{"event":{"content":"` + strings.Repeat("x", 200) + `"}}`
	req := httptest.NewRequest("POST", "/api/event/verify", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	handleEventVerify(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

// Events signed by go-nostr must verify here.
func TestVerifyGoNostrSignedEvent(t *testing.T) {
	sk := nostr.GeneratePrivateKey()
	pub, _ := nostr.GetPublicKey(sk)

	ev := nostr.Event{
		PubKey:    pub,
		CreatedAt: nostr.Now(),
		Kind:      30023,
		Tags: nostr.Tags{
			{"d", "article"},
			{"title", "tabs\tand \"quotes\""},
		},
		Content: "line one\nline two é \U0001F600",
	}
	if err := ev.Sign(sk); err != nil {
		t.Fatal(err)
	}

	resp := verifyRequest(t, ev)
	if !resp.Verify {
		t.Fatalf("expected verify=true, got %+v", resp)
	}
	if resp.ComputedID != ev.ID || resp.ID != ev.ID {
		t.Fatalf("expected id %s, got claimed %s computed %s", ev.ID, resp.ID, resp.ComputedID)
	}
	for _, c := range resp.Checks {
		if c.Status != "match" {
			t.Errorf("%s check: expected match, got %s", c.Field, c.Status)
		}
	}
}

func TestVerifyInvalidSignature(t *testing.T) {
	ev := nostr.Event{
		PubKey:    testPK,
		CreatedAt: nostr.Now(),
		Kind:      1,
		Tags:      nostr.Tags{{"d", "test"}},
		Sig:       strings.Repeat("0", 128),
	}
	// Compute the correct ID so only the signature is wrong
	ev.ID = ev.GetID()

	resp := verifyRequest(t, ev)
	if resp.Verify {
		t.Fatal("expected verify=false for bad signature")
	}
	if resp.Checks[0].Status != "match" || resp.Checks[1].Status != "divergent" {
		t.Fatalf("expected id match and sig divergent, got %+v", resp.Checks)
	}
}

func TestVerifyWrongID(t *testing.T) {
	sk := nostr.GeneratePrivateKey()
	pub, _ := nostr.GetPublicKey(sk)
	ev := nostr.Event{PubKey: pub, CreatedAt: 1, Kind: 1, Tags: nostr.Tags{}, Content: "original"}
	ev.Sign(sk)
	ev.Content = "edited"

	resp := verifyRequest(t, ev)
	if resp.Verify {
		t.Fatal("expected verify=false for edited content")
	}
	if resp.ComputedID == resp.ID {
		t.Fatal("computed id should differ from the claimed one")
	}
	if resp.Checks[0].Status != "divergent" || resp.Checks[1].Status != "unverifiable" {
		t.Fatalf("expected id divergent and sig unverifiable, got %+v", resp.Checks)
	}
}
