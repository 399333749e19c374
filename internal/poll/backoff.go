package poll

import "time"

// backoffDelay computes the retry delay after a failure streak.
//
// The delay starts at base for the first failure and doubles with each
// consecutive failure, never exceeding cap. With base 1s and cap 8s,
// three failures schedule delays of 1s, 2s, 4s.
//
// Parameters:
//   - base: Delay after the first failure (must be positive)
//   - cap: Upper bound on the delay
//   - failures: Consecutive failure count, 1-based
//
// Returns:
//   - time.Duration: The delay before the next retry
func backoffDelay(base, cap time.Duration, failures int) time.Duration {
	if failures <= 0 {
		return base
	}

	delay := base
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= cap || delay <= 0 { // <= 0 guards duration overflow
			return cap
		}
	}
	if delay > cap {
		return cap
	}
	return delay
}
