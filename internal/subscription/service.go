// Package subscription implements channel-facing bookkeeping: adding a
// channel to a source's subscriber set (validating the feed first), removing
// it by id or URL, and listing a channel's sources.
package subscription

import (
	"context"
	"errors"
	"strconv"
	"time"

	"rsscat/internal/storage"
	"rsscat/internal/transport"
	"rsscat/internal/validate"
	logx "rsscat/pkg/logx"
)

var (
	// ErrDuplicateSubscription means the channel is already subscribed to
	// this source.
	ErrDuplicateSubscription = errors.New("subscription: channel already subscribed")
	// ErrUnknownSource means the referenced id or URL is not registered.
	ErrUnknownSource = errors.New("subscription: unknown source")
	// ErrAmbiguousReference means a remove argument is neither a numeric id
	// nor a parsable URL.
	ErrAmbiguousReference = errors.New("subscription: reference is neither an id nor a url")
	// ErrNotSubscribed means the channel was not subscribed to the source it
	// tried to leave.
	ErrNotSubscribed = errors.New("subscription: channel not subscribed")
)

type Service struct {
	store     storage.Store
	coalescer *validate.Coalescer
	log       logx.Logger

	// validateTimeout bounds the connectivity probe on Subscribe.
	validateTimeout time.Duration
}

func New(store storage.Store, coalescer *validate.Coalescer, validateTimeout time.Duration, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if validateTimeout <= 0 {
		validateTimeout = 10 * time.Second
	}
	return &Service{
		store:           store,
		coalescer:       coalescer,
		log:             log,
		validateTimeout: validateTimeout,
	}
}

// Subscribe validates the feed, registers the source if it is new, and adds
// the channel to its subscriber set. The returned Source reflects the state
// after the update.
func (s *Service) Subscribe(ctx context.Context, rawURL string, ch transport.ChannelID) (storage.Source, error) {
	u, err := validate.NormalizeURL(rawURL)
	if err != nil {
		return storage.Source{}, err
	}

	if _, err := s.coalescer.Validate(ctx, u, s.validateTimeout); err != nil {
		return storage.Source{}, err
	}

	src, err := s.store.GetByURL(ctx, u)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		src, err = s.store.Create(ctx, u)
		if err != nil && !errors.Is(err, storage.ErrDuplicateURL) {
			return storage.Source{}, err
		}
		// Lost a create race: re-read the winner's row.
		if errors.Is(err, storage.ErrDuplicateURL) {
			if src, err = s.store.GetByURL(ctx, u); err != nil {
				return storage.Source{}, err
			}
		}
	case err != nil:
		return storage.Source{}, err
	}

	for _, existing := range src.Subscribers {
		if existing == ch {
			return storage.Source{}, ErrDuplicateSubscription
		}
	}

	src.Subscribers = append(src.Subscribers, ch)
	if err := s.store.SetSubscribers(ctx, src.ID, src.Subscribers); err != nil {
		return storage.Source{}, err
	}

	s.log.Info("subscription added",
		logx.Int64("source_id", src.ID),
		logx.String("url", src.URL),
		logx.String("channel", string(ch)),
	)
	return src, nil
}

// Unsubscribe removes the channel from the source referenced by a numeric id
// or a feed URL. A source left with zero subscribers is deleted so the
// updater stops polling it.
func (s *Service) Unsubscribe(ctx context.Context, ref string, ch transport.ChannelID) (storage.Source, error) {
	src, err := s.resolve(ctx, ref)
	if err != nil {
		return storage.Source{}, err
	}

	remaining := src.Subscribers[:0:0]
	found := false
	for _, existing := range src.Subscribers {
		if existing == ch {
			found = true
			continue
		}
		remaining = append(remaining, existing)
	}
	if !found {
		return storage.Source{}, ErrNotSubscribed
	}

	if len(remaining) == 0 {
		if err := s.store.Remove(ctx, src.ID); err != nil {
			return storage.Source{}, err
		}
		s.log.Info("source removed (no subscribers left)",
			logx.Int64("source_id", src.ID),
			logx.String("url", src.URL),
		)
	} else if err := s.store.SetSubscribers(ctx, src.ID, remaining); err != nil {
		return storage.Source{}, err
	}

	src.Subscribers = remaining
	s.log.Info("subscription removed",
		logx.Int64("source_id", src.ID),
		logx.String("url", src.URL),
		logx.String("channel", string(ch)),
	)
	return src, nil
}

// List returns the sources the channel is subscribed to, in id order.
func (s *Service) List(ctx context.Context, ch transport.ChannelID) ([]storage.Source, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []storage.Source
	for _, src := range all {
		for _, existing := range src.Subscribers {
			if existing == ch {
				out = append(out, src)
				break
			}
		}
	}
	return out, nil
}

// resolve maps a user-supplied reference to a source row. Numeric references
// are treated as ids, everything else as a URL; a string that is neither is
// ambiguous.
func (s *Service) resolve(ctx context.Context, ref string) (storage.Source, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		src, err := s.store.GetByID(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Source{}, ErrUnknownSource
		}
		return src, err
	}

	u, err := validate.NormalizeURL(ref)
	if err != nil {
		return storage.Source{}, ErrAmbiguousReference
	}
	src, err := s.store.GetByURL(ctx, u)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Source{}, ErrUnknownSource
	}
	return src, err
}
