package updater

import (
	"context"
	"sync"
	"time"

	"rsscat/internal/feed"
	"rsscat/internal/storage"
	logx "rsscat/pkg/logx"
)

// RunTick processes every registered source once. Sources created after the
// snapshot are picked up next tick. Only listing the snapshot can fail; all
// per-source errors are contained inside the worker pool.
func (s *Service) RunTick(ctx context.Context) error {
	start := time.Now()
	cfg := s.config()

	sources, err := s.store.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		s.log.Debug("no sources registered; tick is a no-op")
		return nil
	}

	s.log.Debug("tick started", logx.Int("sources", len(sources)))

	// Fixed-size worker pool pulling from a per-tick queue: each worker runs
	// one source's chain to completion before taking the next, which keeps at
	// most Concurrency fetch+parse+broadcast chains in flight.
	jobs := make(chan storage.Source)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for src := range jobs {
				s.processSource(ctx, cfg, src)
			}
		}()
	}

feedLoop:
	for _, src := range sources {
		select {
		case jobs <- src:
		case <-ctx.Done():
			break feedLoop
		}
	}
	close(jobs)
	wg.Wait()

	s.log.Info("tick finished",
		logx.Int("sources", len(sources)),
		logx.Duration("dur", time.Since(start)),
	)
	return nil
}

// processSource runs one source through the full pipeline. Fetch and parse
// failures terminate this source only; siblings keep running.
func (s *Service) processSource(ctx context.Context, cfg Config, src storage.Source) {
	log := s.log.With(logx.Int64("source_id", src.ID), logx.String("url", src.URL))

	body, _, err := s.client.Fetch(ctx, src.URL, cfg.FetchTimeout)
	if err != nil {
		log.Warn("fetch failed", logx.Err(err))
		return
	}

	items, err := s.parser.Parse(body)
	if err != nil {
		log.Warn("parse failed", logx.Err(err))
		return
	}

	newItems := feed.SelectNew(items, src.Watermark)
	if len(newItems) == 0 {
		// Idempotent no-op: no broadcast, no watermark write.
		log.Debug("no new items")
		return
	}

	log.Info("broadcasting updates",
		logx.Int("new_items", len(newItems)),
		logx.Int("subscribers", len(src.Subscribers)),
	)

	// Items go out in ascending pubDate order; the watermark advances only
	// over the prefix of the batch that was handed to the broadcaster. On a
	// failed hand-off the rest of the batch stays above the watermark and is
	// re-selected next tick (at-least-once, never silent loss).
	handed := make([]feed.Item, 0, len(newItems))
	for _, it := range newItems {
		msg := s.composer.Compose(it)
		if msg.IsEmpty() {
			handed = append(handed, it)
			continue
		}
		if err := s.caster.Broadcast(ctx, src.Subscribers, msg); err != nil {
			log.Warn("broadcast failed; stopping batch for this tick",
				logx.Time("item_date", it.PubDate),
				logx.Err(err),
			)
			break
		}
		handed = append(handed, it)
	}

	next := feed.NextWatermark(handed, src.Watermark)
	if !next.After(src.Watermark) {
		return
	}
	if err := s.store.SetWatermark(ctx, src.ID, next); err != nil {
		// Next tick rebroadcasts from the old watermark; duplicates beat loss.
		log.Error("watermark update failed", logx.Time("watermark", next), logx.Err(err))
	}
}
