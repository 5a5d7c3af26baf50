package updater

import (
	"context"
	"sync"
	"time"

	"rsscat/internal/feed"
	"rsscat/internal/storage"
	"rsscat/internal/transport"
	logx "rsscat/pkg/logx"
)

// Service owns the poll loop. It is safe for concurrent use; Apply() may
// run while a tick is in progress (the new interval takes effect on the
// next loop iteration, the other settings immediately).
type Service struct {
	mu  sync.Mutex
	cfg Config

	store    storage.Store
	client   *feed.Client
	parser   *feed.Parser
	composer *feed.Composer
	caster   transport.Broadcaster
	log      logx.Logger

	stopCh chan struct{}
	doneCh chan struct{}

	// tickMu serializes ticks: if the previous tick is still running when
	// the timer fires, the new tick is skipped rather than interleaved.
	tickMu      sync.Mutex
	tickStarted time.Time // guarded by mu, for skip diagnostics
}

func New(cfg Config, store storage.Store, client *feed.Client, parser *feed.Parser, composer *feed.Composer, caster transport.Broadcaster, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:      cfg.withDefaults(),
		store:    store,
		client:   client,
		parser:   parser,
		composer: composer,
		caster:   caster,
		log:      log,
	}
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg.withDefaults()
	s.mu.Unlock()
}

func (s *Service) config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Start launches the poll loop. It returns immediately; the loop runs until
// Stop() or ctx cancellation.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	cfg := s.cfg
	s.mu.Unlock()

	s.log.Info("updater started",
		logx.Duration("interval", cfg.Interval),
		logx.Int("concurrency", cfg.Concurrency),
	)

	go s.loop(ctx, stopCh, doneCh)
}

// Stop halts the loop and waits for an in-flight tick to finish.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	stopCh, doneCh := s.stopCh, s.doneCh
	s.stopCh, s.doneCh = nil, nil
	s.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	select {
	case <-doneCh:
	case <-ctx.Done():
	}
}

func (s *Service) loop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	// First tick right away so a restart doesn't wait a full interval.
	s.tick(ctx)

	for {
		interval := s.config().Interval
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("updater stopped")
			return
		case <-stopCh:
			timer.Stop()
			s.log.Info("updater stopped")
			return
		case <-timer.C:
			s.tick(ctx)
		}
	}
}

// tick runs one poll cycle unless the previous one is still running, in
// which case it is skipped (never interleaved).
func (s *Service) tick(ctx context.Context) {
	if !s.tickMu.TryLock() {
		s.mu.Lock()
		age := time.Since(s.tickStarted)
		s.mu.Unlock()
		s.log.Warn("tick skipped; previous tick still running", logx.Duration("age", age))
		return
	}
	defer s.tickMu.Unlock()

	s.mu.Lock()
	s.tickStarted = time.Now()
	s.mu.Unlock()

	if err := s.RunTick(ctx); err != nil {
		s.log.Error("tick failed", logx.Err(err))
	}
}
