package poll_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/malbeclabs/spltoken/internal/poll"
	"github.com/stretchr/testify/require"
)

type result struct {
	attempts int
	err      error
}

// drive advances clock by interval each time the poller is parked on it, until f returns.
func drive(t *testing.T, clock *clockwork.FakeClock, interval time.Duration, f func() (int, error)) (int, error) {
	t.Helper()
	done := make(chan result, 1)
	go func() {
		n, err := f()
		done <- result{n, err}
	}()
	for range 1000 {
		select {
		case r := <-done:
			return r.attempts, r.err
		default:
		}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_ = clock.BlockUntilContext(ctx, 1)
		cancel()
		clock.Advance(interval)
	}
	t.Fatal("poller did not finish")
	return 0, nil
}

func TestPoll_Until(t *testing.T) {
	t.Parallel()

	t.Run("succeeds after a few attempts", func(t *testing.T) {
		t.Parallel()
		clock := clockwork.NewFakeClock()
		attempts, err := drive(t, clock, time.Second, func() (int, error) {
			return poll.Until(context.Background(), poll.Options{Timeout: time.Minute, Interval: time.Second, Clock: clock},
				func(_ context.Context, attempt int) (bool, error) {
					return attempt == 3, nil
				})
		})
		require.NoError(t, err)
		require.Equal(t, 3, attempts)
	})

	t.Run("returns condition error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		attempts, err := poll.Until(context.Background(), poll.Options{Timeout: time.Second, Interval: time.Millisecond},
			func(context.Context, int) (bool, error) {
				return false, boom
			})
		require.ErrorIs(t, err, boom)
		require.Equal(t, 1, attempts)
	})

	t.Run("times out on the clock", func(t *testing.T) {
		t.Parallel()
		clock := clockwork.NewFakeClock()
		attempts, err := drive(t, clock, time.Second, func() (int, error) {
			return poll.Until(context.Background(), poll.Options{Timeout: 3 * time.Second, Interval: time.Second, Clock: clock},
				func(context.Context, int) (bool, error) {
					return false, nil
				})
		})
		require.ErrorIs(t, err, poll.ErrTimeout)
		require.Equal(t, 4, attempts)
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := poll.Until(ctx, poll.Options{Timeout: time.Minute, Interval: time.Hour, Clock: clockwork.NewFakeClock()},
			func(context.Context, int) (bool, error) {
				return false, nil
			})
		require.ErrorIs(t, err, context.Canceled)
	})
}
