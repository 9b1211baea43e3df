package session

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/voucher-sync/internal/application/port"
	"github.com/garyjia/voucher-sync/internal/domain/entity"
)

// MemoryStore keeps sessions in process memory and evicts expired ones
// on a fixed interval
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*entity.Session
	now      func() time.Time
	logger   *zap.Logger

	started  atomic.Bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates a store. Call Start to run the sweeper.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*entity.Session),
		now:      time.Now,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Get returns the session for token
func (s *MemoryStore) Get(token string) (*entity.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[token]
	return sess, ok
}

// Put stores or replaces a session
func (s *MemoryStore) Put(sess *entity.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = sess
}

// Delete removes a session
func (s *MemoryStore) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// Len returns the number of stored sessions
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were removed
func (s *MemoryStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

// Start runs Sweep every interval until Stop is called
func (s *MemoryStore) Start(interval time.Duration) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(s.doneCh)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.logger.Debug("Expired sessions swept", zap.Int("count", n))
				}
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop halts the sweeper and waits for it to exit. Safe to call more than once.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.started.Load() {
			<-s.doneCh
		}
	})
}

// Verify interface compliance
var _ port.SessionStore = (*MemoryStore)(nil)
