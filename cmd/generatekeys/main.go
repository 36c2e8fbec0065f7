// Command generatekeys prints fresh Nostr key pairs as JSON, one per line.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nbd-wtf/go-nostr/nip19"

	"github.com/joelklabo/nostr-api/identity"
)

type keyPair struct {
	SK   string `json:"sk"`
	PK   string `json:"pk"`
	Nsec string `json:"nsec"`
	Npub string `json:"npub"`
}

func generate() (keyPair, error) {
	sk, err := identity.GenerateSecretKey()
	if err != nil {
		return keyPair{}, err
	}
	defer sk.Zero()

	pk, err := identity.DerivePublicKey(sk)
	if err != nil {
		return keyPair{}, err
	}
	nsec, err := nip19.EncodePrivateKey(sk.Hex())
	if err != nil {
		return keyPair{}, fmt.Errorf("encode nsec: %w", err)
	}
	npub, err := nip19.EncodePublicKey(pk)
	if err != nil {
		return keyPair{}, fmt.Errorf("encode npub: %w", err)
	}
	return keyPair{SK: sk.Hex(), PK: pk, Nsec: nsec, Npub: npub}, nil
}

func run(w io.Writer, n int) error {
	if n < 1 {
		return fmt.Errorf("-n must be positive, got %d", n)
	}
	enc := json.NewEncoder(w)
	for i := 0; i < n; i++ {
		kp, err := generate()
		if err != nil {
			return err
		}
		if err := enc.Encode(kp); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	n := flag.Int("n", 1, "number of key pairs to generate")
	flag.Parse()

	if err := run(os.Stdout, *n); err != nil {
		slog.Error("generatekeys", "err", err)
		os.Exit(1)
	}
}
