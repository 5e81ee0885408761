package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

var ErrTimeout = errors.New("condition not met before timeout")

// Condition is checked once per attempt; attempt starts at 1.
type Condition func(ctx context.Context, attempt int) (bool, error)

type Options struct {
	Timeout  time.Duration
	Interval time.Duration

	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// Until checks condition every interval until it reports true or returns an error. The deadline
// is measured on opts.Clock, so a fake clock drives it in tests. It returns the number of attempts
// made.
func Until(ctx context.Context, opts Options, condition Condition) (int, error) {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	deadline := clock.Now().Add(opts.Timeout)

	for attempt := 1; ; attempt++ {
		ok, err := condition(ctx, attempt)
		if err != nil {
			return attempt, err
		}
		if ok {
			return attempt, nil
		}
		if !clock.Now().Before(deadline) {
			return attempt, fmt.Errorf("%w after %s (%d attempts)", ErrTimeout, opts.Timeout, attempt)
		}

		select {
		case <-ctx.Done():
			return attempt, fmt.Errorf("polling cancelled: %w", ctx.Err())
		case <-clock.After(opts.Interval):
		}
	}
}
