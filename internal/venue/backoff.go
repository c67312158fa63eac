package venue

import "time"

// ReconnectDelay returns the capped exponential backoff for the given
// reconnect attempt (1-based): min(base * 2^(attempt-1), max).
func ReconnectDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
