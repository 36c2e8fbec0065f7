package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nbd-wtf/go-nostr"

	"github.com/joelklabo/nostr-api/identity"
)

// useProfiles answers NIP-05 lookups from a name -> pubkey table.
func useProfiles(t *testing.T, names map[string]string, relays []string) *atomic.Int32 {
	t.Helper()
	var calls atomic.Int32
	old := queryProfile
	queryProfile = func(ctx context.Context, user string) (*nostr.ProfilePointer, error) {
		calls.Add(1)
		pk, ok := names[user]
		if !ok {
			return nil, fmt.Errorf("%s not found", user)
		}
		return &nostr.ProfilePointer{PublicKey: pk, Relays: relays}, nil
	}
	t.Cleanup(func() { queryProfile = old })
	return &calls
}

func TestResolveNIP05InvalidFormat(t *testing.T) {
	calls := useProfiles(t, nil, nil)
	tests := []struct {
		name  string
		input string
	}{
		{"no at sign", "noatsign"},
		{"empty name", "@domain.com"},
		{"empty domain", "user@"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveNIP05(context.Background(), tt.input)
			if err == nil {
				t.Errorf("expected error for input %q, got nil", tt.input)
			}
		})
	}
	if calls.Load() != 0 {
		t.Errorf("malformed identifiers must not be looked up, got %d calls", calls.Load())
	}
}

func TestHandleNIP05Profile(t *testing.T) {
	useProfiles(t, map[string]string{"alice@example.com": testPK}, []string{testRelay})

	w := getPath(t, "/api/nip05/profile?user=alice@example.com")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp NIP05Profile
	decodeResp(t, w, &resp)
	if resp.PubKey != testPK {
		t.Errorf("pubkey = %s, want %s", resp.PubKey, testPK)
	}
	if len(resp.Relays) != 1 || resp.Relays[0] != testRelay {
		t.Errorf("relays = %v", resp.Relays)
	}
}

func TestHandleNIP05ProfileEmptyRelays(t *testing.T) {
	useProfiles(t, map[string]string{"bob@example.com": testPK}, nil)

	w := getPath(t, "/api/nip05/profile?user=bob@example.com")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"relays":[]`) {
		t.Errorf("expected empty relays array, got %s", w.Body.String())
	}
}

func TestHandleNIP05ProfileErrors(t *testing.T) {
	useProfiles(t, map[string]string{"bad@example.com": "not-a-key"}, nil)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"missing user", "/api/nip05/profile", http.StatusBadRequest},
		{"no at sign", "/api/nip05/profile?user=noatsign", http.StatusBadRequest},
		{"unknown name", "/api/nip05/profile?user=carol@example.com", http.StatusBadRequest},
		{"invalid pubkey in response", "/api/nip05/profile?user=bad@example.com", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := getPath(t, tt.path)
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			var resp map[string]string
			decodeResp(t, w, &resp)
			if resp["error"] == "" {
				t.Error("expected error message in response")
			}
		})
	}
}

func TestHandleNIP05ProfileTimeout(t *testing.T) {
	old := queryProfile
	defer func() { queryProfile = old }()
	queryProfile = func(ctx context.Context, user string) (*nostr.ProfilePointer, error) {
		return nil, context.DeadlineExceeded
	}

	w := getPath(t, "/api/nip05/profile?user=slow@example.com")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleNIP05Batch(t *testing.T) {
	useProfiles(t, map[string]string{"alice@example.com": testPK}, nil)

	body := `{"users":["alice@example.com","nobody@example.com","broken"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/nip05/batch", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	handleNIP05Batch(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Results []map[string]interface{} `json:"results"`
		Count   int                      `json:"count"`
	}
	decodeResp(t, w, &resp)
	if resp.Count != 3 || len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", resp.Count)
	}
	if resp.Results[0]["pubkey"] != testPK {
		t.Errorf("first result should resolve, got %v", resp.Results[0])
	}
	for i := 1; i < 3; i++ {
		if resp.Results[i]["error"] == nil {
			t.Errorf("result %d should carry an error: %v", i, resp.Results[i])
		}
	}
}

func TestHandleNIP05BatchLimits(t *testing.T) {
	tooMany := make([]string, maxNIP05Batch+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf(`"u%d@example.com"`, i)
	}
	tests := []struct {
		name string
		body string
	}{
		{"empty", `{"users":[]}`},
		{"too many", `{"users":[` + strings.Join(tooMany, ",") + `]}`},
		{"invalid json", `{"users":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, handleNIP05Batch, "/api/nip05/batch", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
		})
	}
}

func profileEvent(t *testing.T, content string) identity.Event {
	return mustSign(t, identity.Event{CreatedAt: 100, Kind: 0, Content: content})
}

func TestHandleNIP05Reverse(t *testing.T) {
	ft := &fakeTransport{events: []identity.Event{
		profileEvent(t, `{"name":"Alice","nip05":"alice@example.com"}`),
	}}
	useTransport(t, ft)
	useProfiles(t, map[string]string{"alice@example.com": testPK}, []string{testRelay})

	for _, q := range []string{testPK, testNpub} {
		w := getPath(t, "/api/nip05/reverse?pubkey="+q)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp map[string]interface{}
		decodeResp(t, w, &resp)
		if resp["verified"] != true {
			t.Errorf("expected verified, got %v", resp)
		}
		if resp["nip05"] != "alice@example.com" || resp["display_name"] != "Alice" {
			t.Errorf("unexpected identity %v", resp)
		}
	}
	if len(ft.filter.Authors) != 1 || ft.filter.Authors[0] != testPK || ft.filter.Kinds[0] != 0 {
		t.Errorf("unexpected profile filter %+v", ft.filter)
	}
}

func TestHandleNIP05ReverseMismatch(t *testing.T) {
	useTransport(t, &fakeTransport{events: []identity.Event{
		profileEvent(t, `{"display_name":"Mallory","nip05":"jack@example.com"}`),
	}})
	useProfiles(t, map[string]string{"jack@example.com": pubOf(t, testSK2)}, nil)

	w := getPath(t, "/api/nip05/reverse?pubkey="+testPK)
	var resp map[string]interface{}
	decodeResp(t, w, &resp)
	if resp["verified"] != false {
		t.Errorf("spoofed nip05 must not verify: %v", resp)
	}
	if resp["verify_error"] == nil {
		t.Error("expected verify_error")
	}
}

func TestHandleNIP05ReverseNoProfile(t *testing.T) {
	useTransport(t, &fakeTransport{})

	w := getPath(t, "/api/nip05/reverse?pubkey="+testPK)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]interface{}
	decodeResp(t, w, &resp)
	if resp["verified"] != false || resp["error"] == nil {
		t.Errorf("expected unverified with error, got %v", resp)
	}

	useTransport(t, &fakeTransport{fetchErr: errors.New("relays down")})
	w = getPath(t, "/api/nip05/reverse?pubkey="+testPK)
	decodeResp(t, w, &resp)
	if !strings.Contains(fmt.Sprint(resp["error"]), "relays down") {
		t.Errorf("expected relay error, got %v", resp)
	}
}

func TestHandleNIP05ReverseBadPubkey(t *testing.T) {
	for _, q := range []string{"", "abc", testNsec} {
		w := getPath(t, "/api/nip05/reverse?pubkey="+q)
		if w.Code != http.StatusBadRequest {
			t.Errorf("pubkey=%q: expected 400, got %d", q, w.Code)
		}
	}
}
