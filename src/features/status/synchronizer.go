package status

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"maestro/src/features/metrics"
	"maestro/src/player"
)

// Poll results reported to the metrics counter.
const (
	pollOK      = "ok"
	pollError   = "error"
	pollSkipped = "skipped"
)

// Synchronizer polls one driver on a fixed interval and publishes each
// successful snapshot to the store. A tick that fires while the previous
// fetch is still in flight is dropped, never queued, so a slow backend
// cannot pile up requests. Fetch failures are logged and swallowed; the
// last good snapshot stands until the next success.
type Synchronizer struct {
	playerID string
	driver   player.Driver
	store    *Store
	interval time.Duration

	inFlight atomic.Bool
	stopChan chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	stopped bool
}

// NewSynchronizer creates a synchronizer for one player. It does not
// start polling until Start is called.
func NewSynchronizer(playerID string, driver player.Driver, store *Store, interval time.Duration) *Synchronizer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Synchronizer{
		playerID: playerID,
		driver:   driver,
		store:    store,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the polling loop.
func (s *Synchronizer) Start() {
	go s.loop()
	slog.Debug("Status synchronizer started", "player", s.playerID, "interval", s.interval)
}

// Stop halts the polling loop. Idempotent. An in-flight fetch is not
// cancelled; its late result is discarded on arrival so it cannot
// overwrite whatever the owner publishes after stopping.
func (s *Synchronizer) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		close(s.stopChan)
	})
}

func (s *Synchronizer) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.stopChan:
			slog.Debug("Status synchronizer stopped", "player", s.playerID)
			return
		}
	}
}

// tick dispatches one fetch unless one is already running.
func (s *Synchronizer) tick() {
	if !s.inFlight.CompareAndSwap(false, true) {
		metrics.StatusPollsTotal.WithLabelValues(s.playerID, pollSkipped).Inc()
		return
	}
	go s.fetch()
}

func (s *Synchronizer) fetch() {
	defer s.inFlight.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap, err := s.driver.Status(ctx)
	if err != nil {
		metrics.StatusPollsTotal.WithLabelValues(s.playerID, pollError).Inc()
		slog.Debug("Status fetch failed, keeping last snapshot", "player", s.playerID, "error", err)
		return
	}

	// Publication and Stop exclude each other: a fetch that lands after
	// Stop sees stopped and is dropped.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		slog.Debug("Discarding late snapshot after stop", "player", s.playerID)
		return
	}

	s.store.Set(s.playerID, snap)
	metrics.StatusPollsTotal.WithLabelValues(s.playerID, pollOK).Inc()
}
