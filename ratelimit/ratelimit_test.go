package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterAllowsUnderLimit(t *testing.T) {
	l := NewLimiter(Config{MaxRequests: 3, Window: time.Second})
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("Expected request %d to be allowed", i)
		}
	}
}

func TestLimiterBlocksOverLimit(t *testing.T) {
	l := NewLimiter(Config{MaxRequests: 2, Window: time.Second})
	defer l.Stop()

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.1")
	if l.Allow("10.0.0.1") {
		t.Error("Expected third request in the window to be blocked")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := NewLimiter(Config{MaxRequests: 1, Window: time.Second})
	defer l.Stop()

	if !l.Allow("10.0.0.1") {
		t.Fatal("Expected first client to be allowed")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("Expected second client to have its own budget")
	}
}

func TestLimiterWindowSlides(t *testing.T) {
	l := NewLimiter(Config{MaxRequests: 1, Window: 50 * time.Millisecond})
	defer l.Stop()

	if !l.Allow("10.0.0.1") {
		t.Fatal("Expected first request to be allowed")
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("Expected second request inside the window to be blocked")
	}

	time.Sleep(60 * time.Millisecond)
	if !l.Allow("10.0.0.1") {
		t.Error("Expected request to be allowed after the window passed")
	}
}

func TestLimiterReset(t *testing.T) {
	l := NewLimiter(Config{MaxRequests: 1, Window: time.Minute})
	defer l.Stop()

	l.Allow("10.0.0.1")
	if l.Allow("10.0.0.1") {
		t.Fatal("Expected second request to be blocked")
	}

	l.Reset("10.0.0.1")
	if !l.Allow("10.0.0.1") {
		t.Error("Expected request to be allowed after reset")
	}
}

func TestLimiterDefaultsApplied(t *testing.T) {
	l := NewLimiter(Config{})
	defer l.Stop()

	if l.cfg.MaxRequests != DefaultConfig().MaxRequests {
		t.Errorf("Expected default max requests, got %d", l.cfg.MaxRequests)
	}
	if l.cfg.Window != DefaultConfig().Window {
		t.Errorf("Expected default window, got %v", l.cfg.Window)
	}
}
