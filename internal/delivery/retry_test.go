package delivery

import (
	"testing"
	"time"
)

func TestNewRetryPolicyAppliesDefaults(t *testing.T) {
	t.Parallel()

	policy := NewRetryPolicy(0, 0, 0)

	if policy.BaseDelay != time.Second {
		t.Fatalf("baseDelay = %s, want 1s", policy.BaseDelay)
	}
	if policy.Multiplier != 2.0 {
		t.Fatalf("multiplier = %f, want 2", policy.Multiplier)
	}
	if policy.MaxAttempts != 3 {
		t.Fatalf("maxAttempts = %d, want 3", policy.MaxAttempts)
	}
}

func TestRetryPolicyStopsAtBudget(t *testing.T) {
	t.Parallel()

	policy := NewRetryPolicy(time.Second, 2, 3)

	if d := policy.Next(3); d.Retry {
		t.Fatal("attempt 3 of 3 should not retry")
	}
	if d := policy.Next(4); d.Retry {
		t.Fatal("attempt beyond the budget should not retry")
	}
}

func TestRetryPolicyDelaysStrictlyIncrease(t *testing.T) {
	t.Parallel()

	policy := NewRetryPolicy(time.Second, 2, 5)

	previous := time.Duration(0)
	for attempt := 1; attempt < 5; attempt++ {
		d := policy.Next(attempt)
		if !d.Retry {
			t.Fatalf("attempt %d should retry", attempt)
		}
		if d.Delay <= previous {
			t.Fatalf("delay for attempt %d = %s, want > %s", attempt, d.Delay, previous)
		}
		previous = d.Delay
	}
}

func TestRetryPolicyDelayIsCapped(t *testing.T) {
	t.Parallel()

	policy := NewRetryPolicy(30*time.Second, 10, 10)

	if d := policy.Next(5); d.Delay != maxRetryDelay {
		t.Fatalf("delay = %s, want cap %s", d.Delay, maxRetryDelay)
	}
}

func TestRetryPolicyIsConfigurable(t *testing.T) {
	t.Parallel()

	policy := NewRetryPolicy(500*time.Millisecond, 3, 4)

	if d := policy.Next(1); d.Delay != 500*time.Millisecond {
		t.Fatalf("first delay = %s, want 500ms", d.Delay)
	}
	if d := policy.Next(2); d.Delay != 1500*time.Millisecond {
		t.Fatalf("second delay = %s, want 1.5s", d.Delay)
	}
	if d := policy.Next(3); !d.Retry {
		t.Fatal("attempt 3 of 4 should retry")
	}
}
