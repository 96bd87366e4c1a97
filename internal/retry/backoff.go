package retry

import "time"

// ConstantBackoff waits the same delay before every retry.
type ConstantBackoff struct {
	delay       time.Duration
	maxAttempts int
}

// NewConstantBackoff creates a strategy allowing maxAttempts retries,
// each preceded by delay. A negative delay is treated as zero.
func NewConstantBackoff(delay time.Duration, maxAttempts int) *ConstantBackoff {
	if delay < 0 {
		delay = 0
	}
	return &ConstantBackoff{delay: delay, maxAttempts: maxAttempts}
}

// NextDelay returns the fixed delay regardless of attempt.
func (b *ConstantBackoff) NextDelay(int) time.Duration {
	return b.delay
}

// MaxAttempts returns the number of retries allowed after the first attempt.
func (b *ConstantBackoff) MaxAttempts() int {
	return b.maxAttempts
}

// Delay returns the configured delay.
func (b *ConstantBackoff) Delay() time.Duration {
	return b.delay
}
