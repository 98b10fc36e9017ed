// Package retry implements the fixed-backoff retry policy shared by the
// extraction and append calls: a bounded number of attempts with a
// constant pause between them, no growth, no jitter.
package retry

import (
	"errors"
	"fmt"
	"time"
)

var ErrExhausted = errors.New("retry attempts exhausted")

type Policy struct {
	MaxAttempts int
	Backoff     time.Duration

	// Sleep is overridable for tests; nil means time.Sleep.
	Sleep func(time.Duration)
}

func (p Policy) Do(op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if attempt < attempts {
			sleep(p.Backoff)
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrExhausted, attempts, lastErr)
}
