package catalog

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListCacheServesUntilInvalidated(t *testing.T) {
	c := NewListCache(time.Minute)
	var calls int32
	load := func() ([]*Product, error) {
		atomic.AddInt32(&calls, 1)
		return []*Product{{ID: "1"}}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := c.Load(true, load)
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, err := c.Load(false, load)
	require.NoError(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))

	c.Invalidate()
	_, err = c.Load(true, load)
	require.NoError(t, err)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestListCacheDisabled(t *testing.T) {
	c := NewListCache(0)
	var calls int32
	load := func() ([]*Product, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}

	_, _ = c.Load(true, load)
	_, _ = c.Load(true, load)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestListCacheDoesNotStoreErrors(t *testing.T) {
	c := NewListCache(time.Minute)
	boom := errors.New("boom")

	_, err := c.Load(true, func() ([]*Product, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	got, err := c.Load(true, func() ([]*Product, error) { return []*Product{{ID: "2"}}, nil })
	require.NoError(t, err)
	require.Equal(t, "2", got[0].ID)
}

func TestListCacheCollapsesConcurrentLoads(t *testing.T) {
	c := NewListCache(time.Minute)
	var calls int32
	release := make(chan struct{})
	load := func() ([]*Product, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []*Product{}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Load(true, load)
			require.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
