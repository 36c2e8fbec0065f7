package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/joelklabo/nostr-api/identity"
)

var maxBodyBytes int64 = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestError marks a failure as the caller's fault.
type requestError struct{ err error }

func (e requestError) Error() string { return e.err.Error() }
func (e requestError) Unwrap() error { return e.err }

func badRequest(err error) error { return requestError{err} }

// writeFailure maps caller and identity errors to 400, relay failures to 502
// and everything else to 500.
func writeFailure(w http.ResponseWriter, err error) {
	var re requestError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &re),
		errors.Is(err, identity.ErrMalformedEvent),
		errors.Is(err, identity.ErrInvalidKey):
		status = http.StatusBadRequest
	case errors.Is(err, ErrNoRelayAccepted), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusBadGateway
	}
	writeError(w, status, err.Error())
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not Found")
}

// decodeBody reads a JSON request body of at most maxBodyBytes into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// dispatch routes on the {action} path segment, the way every endpoint
// family here is organised.
func dispatch(routes map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, ok := routes[r.PathValue("action")]
		if !ok {
			handleNotFound(w, r)
			return
		}
		h(w, r)
	}
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	writeError(w, http.StatusMethodNotAllowed, method+" required")
	return false
}
