package signal

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"breakoutengine/pkg/types"
)

// DedupKey returns the 16-char hash over the idempotency tuple
// (plan_id, state, timestamp), §4.7.
func DedupKey(s types.Signal) string {
	planID, state, ts := s.DedupKey()
	sum := sha256.Sum256([]byte(planID + "|" + state + "|" + ts.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")))
	return hex.EncodeToString(sum[:])[:16]
}

// MemoryGuard is the in-memory half of idempotency (§4.7a): a set of
// dedup keys (see DedupKey) already emitted in this process, which the
// emitter checks to short-circuit before touching persistence. It is
// separate from PlanRuntimeState.SignalEmitted and is not consulted
// against it.
type MemoryGuard struct {
	mu   sync.Mutex
	seen map[string]bool // dedup key -> seen
}

// NewMemoryGuard constructs an empty in-memory dedup guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{seen: make(map[string]bool)}
}

// CheckAndMark reports whether the key was already seen, and marks it
// seen regardless (a prior "already seen" call and this one both leave
// the key marked).
func (g *MemoryGuard) CheckAndMark(key string) (alreadySeen bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen[key] {
		return true
	}
	g.seen[key] = true
	return false
}
