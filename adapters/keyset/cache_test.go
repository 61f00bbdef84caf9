package keyset

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/rotor/core"
	"github.com/layer-3/rotor/internal/testutil"
)

func TestCacheSingleFlightPerIssuer(t *testing.T) {
	key := testutil.GenerateKey(t)
	doc := testutil.JWKS(t, testutil.PublicJWK("k1", &key.PublicKey))

	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write(doc)
	}))
	defer srv.Close()

	c := NewCache(NewFetcher(testFetcherConfig(), nil), nil)

	const callers = 20
	sets := make([]core.KeySet, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ks, err := c.KeySet(context.Background(), srv.URL)
			assert.NoError(t, err)
			sets[i] = ks
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	for _, ks := range sets {
		require.Contains(t, ks, "k1")
		assert.Same(t, sets[0]["k1"], ks["k1"])
	}
}

func TestCacheEmptyKeySetIsUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"keys":[]}`))
	}))
	defer srv.Close()

	c := NewCache(NewFetcher(testFetcherConfig(), nil), nil)

	_, err := c.KeySet(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUpstreamFetch))
	assert.False(t, errors.Is(err, core.ErrUnknownKey))
}

type stubFetcher struct {
	calls atomic.Int32
}

func (s *stubFetcher) Fetch(ctx context.Context, issuer string) (core.KeySet, error) {
	s.calls.Add(1)
	return core.KeySet{issuer: nil}, nil
}

func TestCacheKeyedByIssuer(t *testing.T) {
	f := &stubFetcher{}
	c := NewCache(f, nil)

	a, err := c.KeySet(context.Background(), "https://a.example")
	require.NoError(t, err)
	b, err := c.KeySet(context.Background(), "https://b.example")
	require.NoError(t, err)
	_, err = c.KeySet(context.Background(), "https://a.example")
	require.NoError(t, err)

	assert.Contains(t, a, "https://a.example")
	assert.Contains(t, b, "https://b.example")
	assert.Equal(t, int32(2), f.calls.Load())
}
