package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"cumulative-transcribe-service/internal/buffer"
)

// Registry is the process-wide map from session id to *State. Get returns
// the pointer directly; a holder that already has a reference is unaffected
// by a concurrent Destroy removing the map entry — the value stays alive
// under Go's GC and the State's own mutex serializes field access, which is
// enough to satisfy "destruction is atomic with respect to in-flight
// operation holders" without extra refcounting.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*State
	idleTTL  time.Duration
	bufCfg   buffer.Config
}

// NewRegistry constructs an empty Registry. idleTTL is the eviction
// threshold used by Sweep; bufCfg configures every session's buffer.
func NewRegistry(idleTTL time.Duration, bufCfg buffer.Config) *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]*State),
		idleTTL:  idleTTL,
		bufCfg:   bufCfg,
	}
}

// Create allocates a new session, registers it, and returns it.
func (r *Registry) Create() *State {
	s := New(r.bufCfg)
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get looks up a session by id.
func (r *Registry) Get(id uuid.UUID) (*State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Destroy removes a session from the registry. Idempotent.
func (r *Registry) Destroy(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of currently registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep removes every session whose LastActivity is older than idleTTL and
// returns how many were evicted. Idempotent and safe to call concurrently
// with Get/Destroy.
func (r *Registry) Sweep() int {
	cutoff := time.Now().Add(-r.idleTTL)

	r.mu.Lock()
	var stale []uuid.UUID
	for id, s := range r.sessions {
		if s.LastActivity().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	return len(stale)
}

// RunSweeper runs Sweep on a ticker until ctx is cancelled.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				log.Info().Int("evicted", n).Msg("swept idle sessions")
			}
		}
	}
}
