package server

import (
	"testing"
	"time"
)

func TestLimiterSetPerKey(t *testing.T) {
	s := newLimiterSet(1, 2)

	a := s.get("10.0.0.1")
	if !a.Allow() || !a.Allow() {
		t.Fatal("burst of 2 should be admitted")
	}
	if a.Allow() {
		t.Fatal("third request inside the burst window should be refused")
	}
	if s.get("10.0.0.1") != a {
		t.Fatal("same key should reuse its bucket")
	}
	if !s.get("10.0.0.2").Allow() {
		t.Fatal("other keys have their own bucket")
	}
}

func TestLimiterSetForgetsIdleKeys(t *testing.T) {
	s := newLimiterSet(1, 1)
	s.get("stale")
	s.entries["stale"].lastSeen = time.Now().Add(-2 * limiterIdle)
	s.sweep = time.Now().Add(-2 * limiterIdle)

	s.get("fresh")
	if _, ok := s.entries["stale"]; ok {
		t.Fatal("idle key should have been swept")
	}
	if len(s.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(s.entries))
	}
}
