package commission

import "time"

// BackoffPolicy doubles the delay per attempt up to Max.
type BackoffPolicy struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int
}

func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{Base: time.Minute, Max: 6 * time.Hour, MaxAttempts: 8}
}

// Delay returns the wait before the next try after the given number of
// completed attempts (1-based).
func (p BackoffPolicy) Delay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := p.Base
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= p.Max || d <= 0 {
			return p.Max
		}
	}
	if d > p.Max {
		return p.Max
	}
	return d
}

// Exhausted reports whether no attempt remains.
func (p BackoffPolicy) Exhausted(attempts int) bool {
	return p.MaxAttempts > 0 && attempts >= p.MaxAttempts
}
