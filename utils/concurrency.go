package utils

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle spaces out store writes to at most a fixed number per second.
// A zero or nil Throttle never waits.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle creates a Throttle allowing perSecond operations per second
// with no burst. perSecond <= 0 disables throttling.
func NewThrottle(perSecond float64) *Throttle {
	if perSecond <= 0 {
		return &Throttle{}
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

// Wait blocks until the next operation may proceed or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || t.limiter == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}

func (t *Throttle) Enabled() bool {
	return t != nil && t.limiter != nil
}
