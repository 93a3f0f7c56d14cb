package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunKeepsResultsAligned(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	var progress [][2]int
	results, err := Run(context.Background(), items, Options{
		BatchSize: 3,
		Workers:   2,
		OnBatch: func(done, total int) {
			progress = append(progress, [2]int{done, total})
		},
	}, func(_ context.Context, n int) (string, error) {
		if n%3 == 0 {
			return "", fmt.Errorf("item %d failed", n)
		}
		return fmt.Sprintf("v%d", n), nil
	})
	require.NoError(t, err)
	require.Len(t, results, len(items))

	for i, n := range items {
		if n%3 == 0 {
			assert.EqualError(t, results[i].Err, fmt.Sprintf("item %d failed", n))
			assert.Empty(t, results[i].Value)
			continue
		}
		assert.NoError(t, results[i].Err)
		assert.Equal(t, fmt.Sprintf("v%d", n), results[i].Value)
	}

	assert.Equal(t, [][2]int{{3, 7}, {6, 7}, {7, 7}}, progress)
}

func TestRunBoundsConcurrency(t *testing.T) {
	items := make([]int, 40)

	var current, peak atomic.Int32
	_, err := Run(context.Background(), items, Options{BatchSize: 20, Workers: 4}, func(_ context.Context, _ int) (struct{}, error) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		current.Add(-1)
		return struct{}{}, nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(4))
	assert.Positive(t, peak.Load())
}

func TestRunStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	items := []int{1, 2, 3, 4}

	var calls atomic.Int32
	_, err := Run(ctx, items, Options{
		BatchSize: 2,
		Workers:   2,
		OnBatch:   func(int, int) { cancel() },
	}, func(_ context.Context, _ int) (int, error) {
		calls.Add(1)
		return 0, nil
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int32(2), calls.Load())
}

func TestRunEmpty(t *testing.T) {
	results, err := Run(context.Background(), []string{}, Options{BatchSize: 10, Workers: 2}, func(_ context.Context, s string) (string, error) {
		return s, nil
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
