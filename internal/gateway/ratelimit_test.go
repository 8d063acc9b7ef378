package gateway

import "testing"

func TestRateLimiter_DisabledWhenRPSNonPositive(t *testing.T) {
	rl := NewRateLimiter(0, 5)
	if rl.Enabled() {
		t.Fatal("expected rps<=0 to disable the limiter")
	}
	for i := 0; i < 100; i++ {
		if !rl.Allow("client-1") {
			t.Fatal("disabled limiter should always allow")
		}
	}
}

func TestRateLimiter_BurstThenDeny(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	if !rl.Allow("client-1") {
		t.Fatal("first request within burst should be allowed")
	}
	if !rl.Allow("client-1") {
		t.Fatal("second request within burst should be allowed")
	}
	if rl.Allow("client-1") {
		t.Fatal("third immediate request should exceed the burst and be denied")
	}
}

func TestRateLimiter_PerClientIsolation(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	if !rl.Allow("client-a") {
		t.Fatal("client-a's first request should be allowed")
	}
	if !rl.Allow("client-b") {
		t.Error("client-b should have its own independent bucket")
	}
}

func TestRateLimiter_ForgetDropsState(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Allow("client-1")
	rl.Allow("client-1") // exhausts burst of 1
	rl.Forget("client-1")
	if !rl.Allow("client-1") {
		t.Error("expected a forgotten client to get a fresh bucket")
	}
}
