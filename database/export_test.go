package database

import "time"

func BackoffForTest() func(int) time.Duration {
	b := backoff{maxRetries: 5, delay: 500 * time.Millisecond, maxDelay: 5 * time.Second}
	return b.nextDelay
}
