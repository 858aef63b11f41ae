package api

import (
	"sync"
	"time"
)

const (
	// maxRequestTTL bounds how far in the future a request may expire.
	maxRequestTTL = 5 * time.Minute

	// cleanupInterval is the interval between cleanup runs.
	cleanupInterval = 10 * time.Second
)

// ReplayGuard remembers accepted request digests until they expire, so a
// signed request is executed at most once.
type ReplayGuard struct {
	seen map[[32]byte]int64 // seen maps request digest to its expiry (unix seconds)
	mu   sync.Mutex         // mu protects the seen map
	now  func() time.Time   // now is the clock, replaceable in tests
	stop chan struct{}      // stop signals the cleanup goroutine to stop
	wg   sync.WaitGroup     // wg waits for the cleanup goroutine
}

// NewReplayGuard creates a guard with a background cleanup loop.
func NewReplayGuard() *ReplayGuard {
	g := &ReplayGuard{
		seen: make(map[[32]byte]int64),
		now:  time.Now,
		stop: make(chan struct{}),
	}

	g.startCleanup()

	return g
}

// Admit reports whether a request expiring at expires may run. It rejects
// expired requests, requests expiring too far ahead, and digests already admitted.
func (g *ReplayGuard) Admit(digest [32]byte, expires int64) bool {
	now := g.now()

	if expires <= now.Unix() || expires > now.Add(maxRequestTTL).Unix() {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.seen[digest]; exists {
		return false
	}

	g.seen[digest] = expires

	return true
}

// Forget releases a digest admitted for a request that was rejected before
// any effect, so the caller may resend it.
func (g *ReplayGuard) Forget(digest [32]byte) {
	g.mu.Lock()
	delete(g.seen, digest)
	g.mu.Unlock()
}

// Len returns the number of remembered digests.
func (g *ReplayGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.seen)
}

// Close stops the cleanup goroutine.
func (g *ReplayGuard) Close() {
	close(g.stop)
	g.wg.Wait()
}

// startCleanup starts the background cleanup goroutine.
func (g *ReplayGuard) startCleanup() {
	g.wg.Add(1)

	go func() {
		defer g.wg.Done()

		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				g.cleanup()
			case <-g.stop:
				return
			}
		}
	}()
}

// cleanup removes expired digests. An expired request is rejected by Admit
// regardless, so its digest is no longer needed.
func (g *ReplayGuard) cleanup() {
	now := g.now().Unix()

	g.mu.Lock()

	for digest, expires := range g.seen {
		if expires <= now {
			delete(g.seen, digest)
		}
	}

	g.mu.Unlock()
}
