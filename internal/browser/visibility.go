package browser

import (
	"context"
	"time"
)

// visibilityPollInterval is how often live backends re-evaluate an expectation
const visibilityPollInterval = 100 * time.Millisecond

// pollVisible calls check until it reports true or timeout runs out. The last
// check always runs after the deadline so a zero timeout still looks once.
func pollVisible(ctx context.Context, timeout, interval time.Duration, check func() (bool, error)) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		visible, err := check()
		if err != nil {
			return false, err
		}
		if visible {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// anyVisible reports whether any of count matches is visible
func anyVisible(count int, visibleAt func(i int) (bool, error)) (bool, error) {
	for i := 0; i < count; i++ {
		visible, err := visibleAt(i)
		if err != nil {
			return false, err
		}
		if visible {
			return true, nil
		}
	}
	return false, nil
}
