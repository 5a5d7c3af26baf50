// Package validate provides the one-shot connectivity probe used when a feed
// is registered. Concurrent probes of the same normalized URL are coalesced
// into a single outstanding fetch (single-flight).
package validate

import (
	"context"
	"errors"
	"sync"
	"time"

	"rsscat/internal/feed"
	logx "rsscat/pkg/logx"
)

var (
	// ErrTimeout means the probe did not settle within the configured timeout.
	ErrTimeout = errors.New("validate: probe timed out")
	// ErrEmptyFeed means the document parsed but contained no items.
	ErrEmptyFeed = errors.New("validate: feed has no items")
)

// probe is one outstanding fetch-and-parse. It settles exactly once; waiters
// block on done and then read item/err.
type probe struct {
	done chan struct{}
	item feed.Item
	err  error
}

// Coalescer owns the in-flight probe table. Construct one per process and
// pass it to whoever issues validations; tests can instantiate isolated
// instances.
type Coalescer struct {
	client *feed.Client
	parser *feed.Parser
	log    logx.Logger

	// inflight is keyed by normalized URL. Insert-and-check happens under a
	// single lock acquisition so two callers can never both think they are
	// first. Entries are removed on settlement.
	mu       sync.Mutex
	inflight map[string]*probe
}

func NewCoalescer(client *feed.Client, parser *feed.Parser, log logx.Logger) *Coalescer {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Coalescer{
		client:   client,
		parser:   parser,
		log:      log,
		inflight: map[string]*probe{},
	}
}

// Validate fetches and parses rawURL once, resolving with the first item or
// an error. A second caller for the same normalized URL while a probe is in
// flight attaches to the existing outcome instead of issuing a new request.
//
// The timeout bounds the whole probe. ctx only bounds this caller's wait;
// cancelling it detaches the caller without aborting a shared probe.
func (c *Coalescer) Validate(ctx context.Context, rawURL string, timeout time.Duration) (feed.Item, error) {
	u, err := NormalizeURL(rawURL)
	if err != nil {
		return feed.Item{}, err
	}

	c.mu.Lock()
	p, attached := c.inflight[u]
	if !attached {
		p = &probe{done: make(chan struct{})}
		c.inflight[u] = p
	}
	c.mu.Unlock()

	if !attached {
		go c.run(u, timeout, p)
	} else {
		c.log.Debug("attached to in-flight probe", logx.String("url", u))
	}

	select {
	case <-p.done:
		return p.item, p.err
	case <-ctx.Done():
		return feed.Item{}, ctx.Err()
	}
}

// run executes the probe and settles it. The probe owns its own context so a
// caller hanging up never cancels the shared outcome.
func (c *Coalescer) run(u string, timeout time.Duration, p *probe) {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	item, err := c.probeOnce(ctx, u)
	if errors.Is(err, context.DeadlineExceeded) {
		err = ErrTimeout
	}

	p.item = item
	p.err = err

	// Remove the entry before waking waiters so a follow-up call observes a
	// clean table and starts a fresh probe.
	c.mu.Lock()
	delete(c.inflight, u)
	c.mu.Unlock()
	close(p.done)

	if err != nil {
		c.log.Debug("probe failed", logx.String("url", u), logx.Err(err))
	}
}

func (c *Coalescer) probeOnce(ctx context.Context, u string) (feed.Item, error) {
	// The probe is a one-shot fetch, not a recurring poll; the context
	// deadline is the only bound applied.
	body, _, err := c.client.Fetch(ctx, u, 0)
	if err != nil {
		return feed.Item{}, err
	}
	items, err := c.parser.Parse(body)
	if err != nil {
		return feed.Item{}, err
	}
	if len(items) == 0 {
		return feed.Item{}, ErrEmptyFeed
	}
	return items[0], nil
}
