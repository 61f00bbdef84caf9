package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestTTLReusesValueWithinWindow(t *testing.T) {
	clock := newFakeClock()
	var calls atomic.Int32
	c := NewTTL(900*time.Second, func(ctx context.Context, key string) (string, error) {
		n := calls.Add(1)
		return fmt.Sprintf("%s-%d", key, n), nil
	}, WithClock(clock.Now))

	ctx := context.Background()
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "k-1", v)

	clock.Advance(899 * time.Second)
	v, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "k-1", v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTTLRefreshesOnceAfterExpiry(t *testing.T) {
	clock := newFakeClock()
	var calls atomic.Int32
	c := NewTTL(900*time.Second, func(ctx context.Context, key string) (int32, error) {
		return calls.Add(1), nil
	}, WithClock(clock.Now))

	ctx := context.Background()
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	clock.Advance(901 * time.Second)
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)

	clock.Advance(10 * time.Second)
	v, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTTLKeysAreIndependent(t *testing.T) {
	var calls atomic.Int32
	c := NewTTL(time.Minute, func(ctx context.Context, key string) (string, error) {
		calls.Add(1)
		return "value-of-" + key, nil
	})

	a, err := c.Get(context.Background(), "a")
	require.NoError(t, err)
	b, err := c.Get(context.Background(), "b")
	require.NoError(t, err)

	assert.Equal(t, "value-of-a", a)
	assert.Equal(t, "value-of-b", b)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 2, c.size())
}

func TestTTLSingleFlight(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := NewTTL(time.Minute, func(ctx context.Context, key string) (*int32, error) {
		n := calls.Add(1)
		<-release
		return &n, nil
	})

	const callers = 50
	results := make([]*int32, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get(context.Background(), "issuer")
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestTTLFailureIsSharedButNotCached(t *testing.T) {
	var calls atomic.Int32
	fail := atomic.Bool{}
	fail.Store(true)
	c := NewTTL(time.Minute, func(ctx context.Context, key string) (string, error) {
		calls.Add(1)
		if fail.Load() {
			return "", errors.New("unreachable")
		}
		return "ok", nil
	})

	_, err := c.Get(context.Background(), "k")
	require.EqualError(t, err, "unreachable")
	assert.Equal(t, 0, c.size())

	fail.Store(false)
	v, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTTLFetchIgnoresCallerCancellation(t *testing.T) {
	c := NewTTL(time.Minute, func(ctx context.Context, key string) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "ok", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestTTLObserverSeesEveryFetch(t *testing.T) {
	clock := newFakeClock()
	var observed []string
	c := NewTTL(time.Minute, func(ctx context.Context, key string) (string, error) {
		return key, nil
	}, WithClock(clock.Now), WithFetchObserver(func(key string, err error) {
		assert.NoError(t, err)
		observed = append(observed, key)
	}))

	_, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	_, err = c.Get(context.Background(), "k")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = c.Get(context.Background(), "k")
	require.NoError(t, err)

	assert.Equal(t, []string{"k", "k"}, observed)
}
