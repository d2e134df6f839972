package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy encapsulates a fixed-delay retry for transient failures.
// It is immutable after construction.
type Policy struct {
	MaxTries int           // total attempts including the first
	Delay    time.Duration // wait between attempts
}

// DefaultPolicy returns the directory-cleanup policy: 3 tries, 3s apart.
func DefaultPolicy() Policy {
	return Policy{MaxTries: 3, Delay: 3 * time.Second}
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	if p.MaxTries <= 0 {
		return fmt.Errorf("max tries must be >0")
	}
	if p.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	return nil
}

// Do calls fn until it succeeds, returns an error retryable rejects, or the
// policy runs out of attempts. The last error is returned.
func (p Policy) Do(ctx context.Context, retryable func(error) bool, fn func() error) error {
	if err := p.Validate(); err != nil {
		return err
	}
	var err error
	for attempt := 1; attempt <= p.MaxTries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt == p.MaxTries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay):
		}
	}
	return err
}
