package services

import (
	"context"
	"fmt"
	"time"
)

// CallLimiter caps simultaneous calls to the hosted model. One limiter is
// shared by the decision and image services.
type CallLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
}

func NewCallLimiter(concurrent int) *CallLimiter {
	if concurrent < 1 {
		concurrent = 1
	}
	slots := make(chan struct{}, concurrent)
	for i := 0; i < concurrent; i++ {
		slots <- struct{}{}
	}
	return &CallLimiter{slots: slots, maxWait: 2 * time.Minute}
}

// Acquire blocks until a slot is available.
func (l *CallLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case <-l.slots:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("timeout waiting for Gemini call slot")
	}
}

func (l *CallLimiter) Release() {
	l.slots <- struct{}{}
}
