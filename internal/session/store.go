// Package session keeps analysis results in memory for the lifetime of a
// dashboard session.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tubedash/internal/metrics"
	"github.com/hitoshi/tubedash/internal/pipeline"
)

// Config holds store settings.
type Config struct {
	TTL             time.Duration // idle time before a session is discarded
	CleanupInterval time.Duration
}

// DefaultConfig returns the default store settings.
func DefaultConfig() Config {
	return Config{
		TTL:             time.Hour,
		CleanupInterval: 5 * time.Minute,
	}
}

type entry struct {
	result     *pipeline.Result
	lastAccess time.Time
}

// Store maps session ids to results. Sessions expire after TTL without access.
type Store struct {
	config  Config
	logger  *slog.Logger
	metrics metrics.MetricsCollector
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewStore creates a Store and starts its background cleanup.
func NewStore(config Config, logger *slog.Logger, m metrics.MetricsCollector) *Store {
	if config.TTL <= 0 {
		config.TTL = DefaultConfig().TTL
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig().CleanupInterval
	}
	if m == nil {
		m = metrics.Nop{}
	}
	s := &Store{
		config:  config,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		entries: make(map[string]*entry),
		stopCh:  make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// Stop ends the background cleanup. It is safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Put stores result under a new session id and returns the id.
func (s *Store) Put(result *pipeline.Result) string {
	id := uuid.NewString()

	s.mu.Lock()
	s.entries[id] = &entry{result: result, lastAccess: s.now()}
	n := len(s.entries)
	s.mu.Unlock()

	s.metrics.SetActiveSessions(n)
	return id
}

// Get returns the result for id and refreshes its expiry.
func (s *Store) Get(id string) (*pipeline.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	if s.now().Sub(e.lastAccess) > s.config.TTL {
		delete(s.entries, id)
		s.metrics.SetActiveSessions(len(s.entries))
		return nil, false
	}
	e.lastAccess = s.now()
	return e.result, true
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.entries, id)
	n := len(s.entries)
	s.mu.Unlock()

	s.metrics.SetActiveSessions(n)
}

// Len returns the number of held sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup removes sessions idle for longer than TTL.
func (s *Store) cleanup() {
	now := s.now()

	s.mu.Lock()
	removed := 0
	for id, e := range s.entries {
		if now.Sub(e.lastAccess) > s.config.TTL {
			delete(s.entries, id)
			removed++
		}
	}
	n := len(s.entries)
	s.mu.Unlock()

	s.metrics.SetActiveSessions(n)
	if removed > 0 {
		s.logger.Info("expired sessions removed",
			slog.Int("removed", removed),
			slog.Int("active", n),
		)
	}
}
