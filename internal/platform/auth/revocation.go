package auth

import (
	"sync"
	"time"
)

// Expired revocations are swept on this interval. Between sweeps they are
// also ignored lazily by IsRevoked.
const revocationSweepInterval = 5 * time.Minute

// TokenRevocationStore tracks logged-out session tokens in memory by their JTI
// (JWT ID claim). Entries expire together with their token: once a token is
// past its natural expiry the parser rejects it anyway, so the store only has
// to remember a revocation until then. Thread-safe for concurrent access.
type TokenRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time // JTI -> token expiry
	done    chan struct{}
	once    sync.Once
}

// NewTokenRevocationStore creates a store and starts its background sweeper.
func NewTokenRevocationStore() *TokenRevocationStore {
	s := &TokenRevocationStore{
		entries: make(map[string]time.Time),
		done:    make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Revoke marks a token's JTI as logged out. expiresAt is the token's natural
// expiry; the entry is dropped after that time.
func (s *TokenRevocationStore) Revoke(jti string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[jti] = expiresAt
}

// IsRevoked reports whether jti has been revoked. An entry whose token has
// already expired on its own counts as not revoked; the parser rejects such
// tokens before the store is ever consulted.
func (s *TokenRevocationStore) IsRevoked(jti string) bool {
	s.mu.RLock()
	expiresAt, ok := s.entries[jti]
	s.mu.RUnlock()
	return ok && time.Now().Before(expiresAt)
}

// Count returns the number of tracked revocations.
func (s *TokenRevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the background sweeper. Safe to call more than once.
func (s *TokenRevocationStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *TokenRevocationStore) sweepLoop() {
	ticker := time.NewTicker(revocationSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

// sweep removes entries whose tokens have expired on their own.
func (s *TokenRevocationStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for jti, expiresAt := range s.entries {
		if now.After(expiresAt) {
			delete(s.entries, jti)
		}
	}
}
