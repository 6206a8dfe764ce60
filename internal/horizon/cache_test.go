package horizon

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFetcher struct {
	calls int32
	delay time.Duration
	err   error
}

func (f *countingFetcher) Fetch(ctx context.Context, q Query) (Result, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return Result{}, f.err
	}
	return Result{State: StateFound, AccountID: q.PublicKey, NextSequence: string(rune('0' + n))}, nil
}

func enabled(publicKey, uniqueID string) Query {
	return Query{PublicKey: publicKey, UniqueID: uniqueID, Enabled: true}
}

func TestCacheReusesFreshResults(t *testing.T) {
	fetcher := &countingFetcher{}
	cache := NewCache(fetcher, time.Minute)

	first, err := cache.Fetch(context.Background(), enabled("GABC", ""))
	require.NoError(t, err)
	second, err := cache.Fetch(context.Background(), enabled("GABC", ""))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))

	_, err = cache.Fetch(context.Background(), enabled("GABC", "tx-2"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.calls), "unique id is part of the key")
}

func TestCacheRefetchesWhenStale(t *testing.T) {
	fetcher := &countingFetcher{}
	cache := NewCache(fetcher, time.Second)
	now := time.Unix(1_700_000_000, 0)
	cache.now = func() time.Time { return now }

	_, err := cache.Fetch(context.Background(), enabled("GABC", ""))
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	res, err := cache.Fetch(context.Background(), enabled("GABC", ""))
	require.NoError(t, err)
	assert.Equal(t, "2", res.NextSequence)
}

func TestCacheSharesInFlightRequest(t *testing.T) {
	fetcher := &countingFetcher{delay: 50 * time.Millisecond}
	cache := NewCache(fetcher, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Fetch(context.Background(), enabled("GABC", ""))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("boom")}
	cache := NewCache(fetcher, time.Minute)

	_, err := cache.Fetch(context.Background(), enabled("GABC", ""))
	require.Error(t, err)
	_, err = cache.Fetch(context.Background(), enabled("GABC", ""))
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.calls))
}

func TestCacheInvalidate(t *testing.T) {
	fetcher := &countingFetcher{}
	cache := NewCache(fetcher, time.Minute)

	_, err := cache.Fetch(context.Background(), enabled("GABC", ""))
	require.NoError(t, err)
	cache.Invalidate("GABC", "")
	_, err = cache.Fetch(context.Background(), enabled("GABC", ""))
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.calls))
}

func TestCacheDisabledQuery(t *testing.T) {
	fetcher := &countingFetcher{}
	cache := NewCache(fetcher, time.Minute)

	res, err := cache.Fetch(context.Background(), Query{PublicKey: "GABC"})
	require.NoError(t, err)
	assert.Equal(t, StateIdle, res.State)
	assert.Zero(t, atomic.LoadInt32(&fetcher.calls))
}

type gatedFetcher struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (f *gatedFetcher) Fetch(ctx context.Context, q Query) (Result, error) {
	f.calls.Add(1)
	close(f.entered)
	<-f.release
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Result{State: StateFound, AccountID: q.PublicKey, NextSequence: "101"}, nil
}

func TestCacheSharedFetchOutlivesCanceledCaller(t *testing.T) {
	fetcher := &gatedFetcher{entered: make(chan struct{}), release: make(chan struct{})}
	cache := NewCache(fetcher, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := cache.Fetch(ctx, enabled("GABC", ""))
		done <- err
	}()
	<-fetcher.entered
	cancel()
	close(fetcher.release)
	require.NoError(t, <-done)

	res, err := cache.Fetch(context.Background(), enabled("GABC", ""))
	require.NoError(t, err)
	assert.Equal(t, "101", res.NextSequence)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}
