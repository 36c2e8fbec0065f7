package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var startTime = time.Now()

// newMux wires every endpoint family. hub serves /api/event/stream.
func newMux(hub *StreamHub) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/key/from", handleKeyFrom)
	mux.HandleFunc("GET /api/key/{action}", handleKey)
	mux.HandleFunc("/api/event/stream", handleEventStream(hub))
	mux.HandleFunc("/api/event/{action}", handleEvent)
	mux.HandleFunc("/api/nip19/{action}", handleNIP19)
	mux.HandleFunc("/api/nip04/{action}", handleNIP04)
	mux.HandleFunc("GET /api/nip05/profile", handleNIP05Profile)
	mux.HandleFunc("/api/nip05/batch", handleNIP05Batch)
	mux.HandleFunc("GET /api/nip05/reverse", handleNIP05Reverse)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":         "ok",
			"relays":         defaultRelays,
			"stream_clients": hub.ClientCount(),
			"uptime":         time.Since(startTime).String(),
		})
	})
	mux.HandleFunc("GET /openapi.json", handleOpenAPI)
	mux.HandleFunc("GET /{$}", handleRoot)
	mux.HandleFunc("/", handleNotFound)
	return mux
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":        "Nostr API",
		"description": "Stateless HTTP gateway to Nostr keys, events, relays and NIP-04/05/19.",
		"endpoints": `GET  /api/key/{generate|from_sk|from_nsec|from_pk|from_npub}: Key pairs in hex and bech32
GET  /api/key/from?sk=|nsec=|pk=|npub=: Key pair from whichever form is given
POST /api/event/{hash|sign|verify}: NIP-01 event identity
POST /api/event/{publish|get|list}: Relay I/O; events read back are verified
GET  /api/event/stream: WebSocket stream of verified events
POST /api/nip19/{decode|nsec|npub|note|nprofile|nevent|naddr|nrelay}: NIP-19 identifiers
POST /api/nip04/{encrypt|decrypt}: NIP-04 payloads
GET  /api/nip05/profile?user=name@domain: NIP-05 lookup
POST /api/nip05/batch: Up to 50 NIP-05 lookups
GET  /api/nip05/reverse?pubkey=: Check a pubkey's own nip05 claim
GET  /openapi.json: OpenAPI document`,
	})
}

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	logger, err := NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		slog.Error("logger", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	maxBodyBytes = cfg.MaxBodyBytes
	relays, err := relaysFor("", cfg.Relays)
	if err != nil {
		logger.Error("NOSTR_RELAYS", "err", err)
		os.Exit(1)
	}
	defaultRelays = relays

	transport = NewPoolTransport(cfg.RelayTimeout)
	defer transport.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Warm the pool; relays that are down now are retried on first use.
	go func() {
		cctx, cancel := context.WithTimeout(ctx, cfg.RelayTimeout)
		defer cancel()
		if err := transport.Connect(cctx, defaultRelays); err != nil {
			logger.Warn("relay connect", "err", err)
		}
	}()

	hub := NewStreamHub(transport)
	limiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Close()

	handler := LoggingMiddleware(logger, RateLimitMiddleware(limiter, newMux(hub)))
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		hub.Close()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Warn("shutdown", "err", err)
		}
	}()

	logger.Info("Nostr API listening", "port", cfg.Port, "relays", defaultRelays)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("serve", "err", err)
		os.Exit(1)
	}
}
