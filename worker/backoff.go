package worker

import "time"

const (
	backoffBase = time.Minute
	backoffCap  = time.Hour
)

// Backoff returns the delay before the next attempt: base × 3^(attempt-1),
// capped. For attempts 1..4 the sequence is 1m, 3m, 9m, 27m.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := backoffBase
	for i := 1; i < attempt; i++ {
		delay *= 3
		if delay >= backoffCap {
			return backoffCap
		}
	}
	return delay
}
