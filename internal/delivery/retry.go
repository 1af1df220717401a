package delivery

import "time"

const (
	defaultBaseDelay   = time.Second
	defaultMultiplier  = 2.0
	defaultMaxAttempts = 3
	maxRetryDelay      = 60 * time.Second
)

// Decision is the retry policy's verdict after a failed attempt.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// RetryPolicy maps an attempt number to a retry decision. All failed
// responses, 4xx and 5xx alike, count identically toward the attempt budget;
// the policy is consulted only after a failed attempt.
type RetryPolicy struct {
	BaseDelay   time.Duration
	Multiplier  float64
	MaxAttempts int
}

// NewRetryPolicy builds a policy with defaults applied for non-positive
// parameters: 1s base delay, doubling per retry, 3 attempts total.
func NewRetryPolicy(baseDelay time.Duration, multiplier float64, maxAttempts int) RetryPolicy {
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	if multiplier <= 1 {
		multiplier = defaultMultiplier
	}
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}

	return RetryPolicy{
		BaseDelay:   baseDelay,
		Multiplier:  multiplier,
		MaxAttempts: maxAttempts,
	}
}

// Next returns the decision for the failed attempt numbered attemptNumber
// (1-based). Once the budget is exhausted, Retry is false and the note goes
// dead. Delays grow exponentially and are capped at 60s.
func (p RetryPolicy) Next(attemptNumber int) Decision {
	if attemptNumber < 1 {
		attemptNumber = 1
	}

	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	if attemptNumber >= maxAttempts {
		return Decision{Retry: false}
	}

	base := p.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	multiplier := p.Multiplier
	if multiplier <= 1 {
		multiplier = defaultMultiplier
	}

	delay := base
	for i := 1; i < attemptNumber; i++ {
		delay = time.Duration(float64(delay) * multiplier)
		if delay >= maxRetryDelay {
			delay = maxRetryDelay
			break
		}
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	return Decision{Retry: true, Delay: delay}
}
