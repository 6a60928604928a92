package usecase

import "time"

const (
	defaultReconnectBase    = 3 * time.Second
	defaultReconnectCeiling = 15 * time.Second
	defaultMaxReconnects    = 5
	defaultTeardownCooldown = 150 * time.Millisecond
)

// reconnectDelay returns the capped exponential backoff delay for the
// given 1-based attempt: min(ceiling, base * 2^(attempt-1)).
func reconnectDelay(base, ceiling time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = defaultReconnectBase
	}
	if ceiling <= 0 {
		ceiling = defaultReconnectCeiling
	}
	if attempt < 1 {
		attempt = 1
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= ceiling {
			return ceiling
		}
	}
	if delay > ceiling {
		return ceiling
	}
	return delay
}
