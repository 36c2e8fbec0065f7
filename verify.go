package main

import (
	"net/http"

	"github.com/joelklabo/nostr-api/identity"
)

// VerifyCheck is the outcome of one verification step.
type VerifyCheck struct {
	Field  string `json:"field"`
	Status string `json:"status"` // "match", "divergent", "unverifiable"
}

// VerifyResponse is the response for POST /api/event/verify.
type VerifyResponse struct {
	Verify     bool          `json:"verify"`      // id and signature both check out
	ID         string        `json:"id"`          // id as claimed by the event
	ComputedID string        `json:"computed_id"` // id recomputed from the content
	Checks     []VerifyCheck `json:"checks"`
}

// handleEventVerify accepts {"event": {...}} and reports whether the event's
// id matches its content and its signature matches the id.
//
// A well-formed event that fails verification is a 200 with verify=false;
// structurally broken events, including ones missing created_at, kind, tags
// or content, are rejected with 400.
func handleEventVerify(w http.ResponseWriter, r *http.Request) {
	req, ok := readEventRequest(w, r)
	if !ok {
		return
	}
	if field := req.Event.missing(); field != "" {
		writeError(w, http.StatusBadRequest, "malformed event: "+field+": required")
		return
	}

	evt := req.Event.event()
	computed, err := identity.ComputeID(&evt)
	if err != nil {
		writeFailure(w, err)
		return
	}
	valid, err := identity.VerifyEvent(&evt)
	if err != nil {
		writeFailure(w, err)
		return
	}

	resp := VerifyResponse{
		Verify:     valid,
		ID:         evt.ID,
		ComputedID: computed,
	}

	idCheck := VerifyCheck{Field: "id", Status: "match"}
	sigCheck := VerifyCheck{Field: "sig", Status: "match"}
	switch {
	case computed != evt.ID:
		idCheck.Status = "divergent"
		sigCheck.Status = "unverifiable"
	case !valid:
		sigCheck.Status = "divergent"
	}
	resp.Checks = []VerifyCheck{idCheck, sigCheck}

	writeJSON(w, http.StatusOK, resp)
}
