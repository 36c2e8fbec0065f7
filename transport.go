package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/joelklabo/nostr-api/identity"
)

// ErrNoRelayAccepted is returned by Publish when every relay refused or failed.
var ErrNoRelayAccepted = errors.New("no relay accepted the event")

// PublishResult is one relay's answer to a publish.
type PublishResult struct {
	URL   string `json:"url"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// RelayTransport moves events between this service and relays. Events coming
// back from relays have already been checked with identity.VerifyEvent.
type RelayTransport interface {
	Connect(ctx context.Context, urls []string) error
	Publish(ctx context.Context, urls []string, evt identity.Event) ([]PublishResult, error)
	Fetch(ctx context.Context, urls []string, filter nostr.Filter) (*identity.Event, error)
	List(ctx context.Context, urls []string, filter nostr.Filter) ([]identity.Event, error)
	Subscribe(ctx context.Context, urls []string, filter nostr.Filter) (<-chan identity.Event, error)
	Close()
}

// poolTransport is the RelayTransport backed by a go-nostr SimplePool.
type poolTransport struct {
	pool    *nostr.SimplePool
	cancel  context.CancelFunc
	timeout time.Duration
}

// NewPoolTransport creates a pool whose relay connections live until Close.
// timeout bounds every Publish, Fetch and List call.
func NewPoolTransport(timeout time.Duration) RelayTransport {
	ctx, cancel := context.WithCancel(context.Background())
	return &poolTransport{
		pool:    nostr.NewSimplePool(ctx),
		cancel:  cancel,
		timeout: timeout,
	}
}

func (t *poolTransport) Connect(ctx context.Context, urls []string) error {
	var errs []error
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := t.pool.EnsureRelay(u); err != nil {
			errs = append(errs, fmt.Errorf("connect %s: %w", u, err))
		}
	}
	return errors.Join(errs...)
}

func (t *poolTransport) Publish(ctx context.Context, urls []string, evt identity.Event) ([]PublishResult, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	results := make([]PublishResult, 0, len(urls))
	accepted := false
	for res := range t.pool.PublishMany(ctx, urls, toNostr(evt)) {
		pr := PublishResult{URL: res.RelayURL, OK: res.Error == nil}
		if res.Error != nil {
			pr.Error = res.Error.Error()
			slog.Debug("publish failed", "relay", res.RelayURL, "id", evt.ID, "err", res.Error)
		} else {
			accepted = true
		}
		results = append(results, pr)
	}
	if !accepted {
		return results, ErrNoRelayAccepted
	}
	return results, nil
}

func (t *poolTransport) Fetch(ctx context.Context, urls []string, filter nostr.Filter) (*identity.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	filter.Limit = 1
	return newest(t.pool.SubManyEose(ctx, urls, nostr.Filters{filter})), nil
}

// newest drains events until every relay has sent EOSE and keeps the
// verified one with the highest created_at. Each relay answers with its own
// latest, so the first to arrive is not necessarily the newest.
func newest(events <-chan nostr.RelayEvent) *identity.Event {
	var best *identity.Event
	for re := range events {
		evt, ok := verified(re)
		if !ok {
			continue
		}
		if best == nil || evt.CreatedAt > best.CreatedAt {
			best = &evt
		}
	}
	return best
}

func (t *poolTransport) List(ctx context.Context, urls []string, filter nostr.Filter) ([]identity.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	seen := make(map[string]bool)
	events := []identity.Event{}
	for re := range t.pool.SubManyEose(ctx, urls, nostr.Filters{filter}) {
		evt, ok := verified(re)
		if !ok || seen[evt.ID] {
			continue
		}
		seen[evt.ID] = true
		events = append(events, evt)
	}
	slices.SortStableFunc(events, func(a, b identity.Event) int {
		return cmp.Compare(b.CreatedAt, a.CreatedAt)
	})
	return events, nil
}

func (t *poolTransport) Subscribe(ctx context.Context, urls []string, filter nostr.Filter) (<-chan identity.Event, error) {
	out := make(chan identity.Event)
	in := t.pool.SubMany(ctx, urls, nostr.Filters{filter})
	go func() {
		defer close(out)
		for re := range in {
			evt, ok := verified(re)
			if !ok {
				continue
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (t *poolTransport) Close() {
	t.cancel()
}

// verified converts a relay event and drops it unless its id and signature
// check out. Relays are not trusted.
func verified(re nostr.RelayEvent) (identity.Event, bool) {
	if re.Event == nil {
		return identity.Event{}, false
	}
	evt := fromNostr(re.Event)
	ok, err := identity.VerifyEvent(&evt)
	if err != nil || !ok {
		slog.Debug("dropping unverifiable relay event", "id", evt.ID, "err", err)
		return identity.Event{}, false
	}
	return evt, true
}

func toNostr(evt identity.Event) nostr.Event {
	tags := make(nostr.Tags, 0, len(evt.Tags))
	for _, tag := range evt.Tags {
		tags = append(tags, nostr.Tag(tag))
	}
	return nostr.Event{
		ID:        evt.ID,
		PubKey:    evt.PubKey,
		CreatedAt: nostr.Timestamp(evt.CreatedAt),
		Kind:      evt.Kind,
		Tags:      tags,
		Content:   evt.Content,
		Sig:       evt.Sig,
	}
}

func fromNostr(ev *nostr.Event) identity.Event {
	tags := make(identity.Tags, 0, len(ev.Tags))
	for _, tag := range ev.Tags {
		tags = append(tags, identity.Tag(tag))
	}
	return identity.Event{
		ID:        ev.ID,
		PubKey:    ev.PubKey,
		CreatedAt: identity.Timestamp(ev.CreatedAt),
		Kind:      ev.Kind,
		Tags:      tags,
		Content:   ev.Content,
		Sig:       ev.Sig,
	}
}
