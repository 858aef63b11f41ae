package api

import (
	"crypto/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// newTestGuard returns a guard whose clock is fixed at now.
func newTestGuard(t *testing.T, now *time.Time) *ReplayGuard {
	t.Helper()

	g := NewReplayGuard()
	g.now = func() time.Time { return *now }
	t.Cleanup(g.Close)

	return g
}

func randomDigest() [32]byte {
	var d [32]byte
	rand.Read(d[:])

	return d
}

// TestReplayGuardBasic tests that a digest is admitted once.
func TestReplayGuardBasic(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	g := newTestGuard(t, &now)

	d := randomDigest()
	expires := now.Add(time.Minute).Unix()

	if !g.Admit(d, expires) {
		t.Fatal("first request should be admitted")
	}

	if g.Admit(d, expires) {
		t.Error("repeated request should be rejected")
	}

	g.Forget(d)

	if !g.Admit(d, expires) {
		t.Error("forgotten request should be admitted again")
	}
}

// TestReplayGuardWindow tests the accepted expiry window.
func TestReplayGuardWindow(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	g := newTestGuard(t, &now)

	if g.Admit(randomDigest(), now.Unix()) {
		t.Error("request expiring now should be rejected")
	}

	if g.Admit(randomDigest(), now.Add(maxRequestTTL+time.Second).Unix()) {
		t.Error("request beyond the window should be rejected")
	}

	if !g.Admit(randomDigest(), now.Add(maxRequestTTL).Unix()) {
		t.Error("request at the window edge should be admitted")
	}
}

// TestReplayGuardCleanup tests that expired digests are dropped.
func TestReplayGuardCleanup(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	g := newTestGuard(t, &now)

	g.Admit(randomDigest(), now.Add(10*time.Second).Unix())
	g.Admit(randomDigest(), now.Add(time.Minute).Unix())

	now = now.Add(30 * time.Second)
	g.cleanup()

	if g.Len() != 1 {
		t.Errorf("expected 1 remaining digest, got %d", g.Len())
	}
}

// TestReplayGuardConcurrent tests that concurrent submissions admit exactly one.
func TestReplayGuardConcurrent(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	g := newTestGuard(t, &now)

	d := randomDigest()
	expires := now.Add(time.Minute).Unix()

	var admitted atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Admit(d, expires) {
				admitted.Add(1)
			}
		}()
	}

	wg.Wait()

	if admitted.Load() != 1 {
		t.Errorf("expected exactly one admission, got %d", admitted.Load())
	}
}
