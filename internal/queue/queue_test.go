package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	ctx := context.Background()
	q := New[int](0)
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Post(ctx, i))
	}
	assert.Equal(t, 5, q.Len())
	for i := 0; i < 5; i++ {
		v, err := q.Take(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueueTakeWaitsForPost(t *testing.T) {
	q := New[string](0)
	got := make(chan string, 1)
	go func() {
		v, err := q.Take(context.Background())
		if err == nil {
			got <- v
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.Post(context.Background(), "hello"))
	select {
	case v := <-got:
		assert.Equal(t, "hello", v)
	case <-time.After(time.Second):
		t.Fatal("Take did not wake up")
	}
}

func TestQueueTakeHonoursContext(t *testing.T) {
	q := New[int](0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := q.Take(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueBoundedPostBlocks(t *testing.T) {
	q := New[int](1)
	require.NoError(t, q.Post(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Post(ctx, 2), context.DeadlineExceeded)

	done := make(chan error, 1)
	go func() { done <- q.Post(context.Background(), 3) }()
	v, err := q.Take(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	require.NoError(t, <-done)

	v, err = q.Take(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestQueueCloseDrainsThenFails(t *testing.T) {
	ctx := context.Background()
	q := New[int](0)
	require.NoError(t, q.Post(ctx, 7))
	q.Close()

	assert.ErrorIs(t, q.Post(ctx, 8), ErrClosed)
	v, err := q.Take(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	_, err = q.Take(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestQueueCloseWakesAllTakers(t *testing.T) {
	q := New[int](0)
	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.Take(context.Background())
			errs <- err
		}()
	}
	time.Sleep(10 * time.Millisecond)
	q.Close()
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.ErrorIs(t, err, ErrClosed)
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	ctx := context.Background()
	q := New[int](4)
	const producers, each = 8, 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				_ = q.Post(ctx, i)
			}
		}()
	}

	seen := 0
	for seen < producers*each {
		_, err := q.Take(ctx)
		require.NoError(t, err)
		seen++
	}
	wg.Wait()
	assert.Equal(t, 0, q.Len())
}
