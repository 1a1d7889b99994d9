package boxpool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	p := New(0, 2, nil)

	ctx := context.Background()
	id, err := p.Acquire(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, id, 0)

	stats := p.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.InUse)

	p.Release(id)
	stats = p.Stats()
	assert.Equal(t, 0, stats.InUse)
}

func TestReleaseOfUnheldIDIsNoOp(t *testing.T) {
	p := New(0, 0, nil)

	p.Release(0) // never acquired; must not panic or grow the free set

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	id, err := p.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, id)

	// A second acquire must now block, proving the earlier no-op Release
	// did not leak an extra token into the free channel.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	_, err = p.Acquire(ctx2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAcquireBlocksUntilCapacityFrees(t *testing.T) {
	p := New(0, 0, nil) // single identifier

	ctx := context.Background()
	id, err := p.Acquire(ctx)
	require.NoError(t, err)

	done := make(chan int, 1)
	go func() {
		acquired, err := p.Acquire(context.Background())
		require.NoError(t, err)
		done <- acquired
	}()

	select {
	case <-done:
		t.Fatal("second acquire returned before release")
	case <-time.After(30 * time.Millisecond):
	}

	p.Release(id)

	select {
	case acquired := <-done:
		assert.Equal(t, id, acquired)
	case <-time.After(time.Second):
		t.Fatal("second acquire never unblocked after release")
	}
}

func TestNoTwoHoldersGetTheSameID(t *testing.T) {
	const capacity = 8
	p := New(0, capacity-1, nil)

	var mu sync.Mutex
	holding := map[int]bool{}

	var wg sync.WaitGroup
	for i := 0; i < capacity*20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := p.Acquire(context.Background())
			require.NoError(t, err)

			mu.Lock()
			assert.False(t, holding[id], "id %d handed to two holders at once", id)
			holding[id] = true
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			delete(holding, id)
			mu.Unlock()
			p.Release(id)
		}()
	}
	wg.Wait()

	stats := p.Stats()
	assert.Equal(t, 0, stats.InUse)
}
