package services

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Minute)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d returned %v", i, err)
		}
	}
	if !cb.IsOpen() {
		t.Fatal("breaker should be open after 3 failures")
	}

	// Open breaker rejects without invoking fn
	invoked := false
	err := cb.Call(func() error { invoked = true; return nil })
	if err == nil {
		t.Fatal("open breaker must reject")
	}
	if invoked {
		t.Fatal("open breaker must not invoke fn")
	}
}

func TestCircuitBreakerRecoversAfterCooldown(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 10*time.Millisecond)

	if err := cb.Call(func() error { return errors.New("boom") }); err == nil {
		t.Fatal("expected failure")
	}
	if !cb.IsOpen() {
		t.Fatal("breaker should open on first failure with maxFailures=1")
	}

	time.Sleep(20 * time.Millisecond)

	if err := cb.Call(func() error { return nil }); err != nil {
		t.Fatalf("half-open call failed: %v", err)
	}
	if cb.IsOpen() {
		t.Fatal("breaker should close after a successful half-open call")
	}
}

func TestCircuitBreakerResetsOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Minute)

	cb.Call(func() error { return errors.New("boom") })
	cb.Call(func() error { return errors.New("boom") })
	if err := cb.Call(func() error { return nil }); err != nil {
		t.Fatalf("success call failed: %v", err)
	}

	// Two more failures stay under the threshold after the reset
	cb.Call(func() error { return errors.New("boom") })
	cb.Call(func() error { return errors.New("boom") })
	if cb.IsOpen() {
		t.Fatal("failure count should reset after a success")
	}
}
