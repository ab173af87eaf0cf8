package ratelimit

import (
	"testing"
	"time"
)

func TestLimiter_AllowsUpToMax(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(Config{Enabled: true, MaxRequests: 3, Window: time.Minute},
		WithNow(func() time.Time { return now }))

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow("U1"); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	ok, wait := l.Allow("U1")
	if ok {
		t.Fatal("fourth request should be denied")
	}
	if wait <= 0 || wait > time.Minute {
		t.Errorf("unexpected wait: %v", wait)
	}
}

func TestLimiter_WindowSlides(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(Config{Enabled: true, MaxRequests: 2, Window: time.Minute},
		WithNow(func() time.Time { return now }))

	l.Allow("U1")
	l.Allow("U1")
	if ok, _ := l.Allow("U1"); ok {
		t.Fatal("third request inside the window should be denied")
	}

	now = now.Add(61 * time.Second)
	if ok, _ := l.Allow("U1"); !ok {
		t.Error("request after the window slides should be allowed")
	}
}

func TestLimiter_PerUser(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(Config{Enabled: true, MaxRequests: 1, Window: time.Minute},
		WithNow(func() time.Time { return now }))

	l.Allow("U1")
	if ok, _ := l.Allow("U2"); !ok {
		t.Error("one user's limit must not affect another")
	}
}

func TestLimiter_Disabled(t *testing.T) {
	l := New(Config{Enabled: false, MaxRequests: 1, Window: time.Minute})
	for i := 0; i < 10; i++ {
		if ok, _ := l.Allow("U1"); !ok {
			t.Fatal("disabled limiter must allow everything")
		}
	}
}

func TestLimiter_Reset(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(Config{Enabled: true, MaxRequests: 1, Window: time.Minute},
		WithNow(func() time.Time { return now }))

	l.Allow("U1")
	l.Reset("U1")
	if ok, _ := l.Allow("U1"); !ok {
		t.Error("reset should clear the window")
	}
}
