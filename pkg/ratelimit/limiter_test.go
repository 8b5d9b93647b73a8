package ratelimit

import (
	"testing"
	"time"
)

func TestTokenBucketAllow(t *testing.T) {
	tb := NewTokenBucket(3, time.Hour)

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Errorf("Request %d should be allowed", i)
		}
	}
	if tb.Allow() {
		t.Error("Request beyond capacity should be denied")
	}
}

func TestTokenBucketRefill(t *testing.T) {
	tb := NewTokenBucket(2, 20*time.Millisecond)

	if !tb.Allow() || !tb.Allow() {
		t.Fatal("Initial requests should be allowed")
	}
	if tb.Allow() {
		t.Fatal("Bucket should be empty")
	}

	time.Sleep(30 * time.Millisecond)

	if !tb.Allow() {
		t.Error("Request after refill period should be allowed")
	}
}

func TestTokenBucketReset(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)

	if !tb.Allow() {
		t.Fatal("First request should be allowed")
	}
	if tb.Allow() {
		t.Fatal("Bucket should be empty")
	}

	tb.Reset()

	if !tb.Allow() {
		t.Error("Request after reset should be allowed")
	}
}

func TestTokenBucketWait(t *testing.T) {
	tb := NewTokenBucket(1, 20*time.Millisecond)
	tb.Allow()

	start := time.Now()
	tb.Wait()
	elapsed := time.Since(start)

	if elapsed < 10*time.Millisecond {
		t.Errorf("Wait returned too early: %v", elapsed)
	}
	if elapsed > 200*time.Millisecond {
		t.Errorf("Wait blocked too long: %v", elapsed)
	}
}

func TestUnlimited(t *testing.T) {
	var limiter Limiter = Unlimited{}
	for i := 0; i < 100; i++ {
		if !limiter.Allow() {
			t.Fatal("Unlimited must always allow")
		}
	}
	limiter.Wait()
	limiter.Reset()
}
