// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package retrier

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxSleepDuration(t *testing.T) {
	initial := 100 * time.Millisecond
	assert.Equal(t, 100*time.Millisecond, maxSleepDuration(initial, 0))
	assert.Equal(t, 200*time.Millisecond, maxSleepDuration(initial, 1))
	assert.Equal(t, 400*time.Millisecond, maxSleepDuration(initial, 2))
	assert.Equal(t, 800*time.Millisecond, maxSleepDuration(initial, 3))
	assert.Equal(t, maxDelay, maxSleepDuration(initial, 64))
}

func TestRequestSucceedsWithoutRetry(t *testing.T) {
	c := New[struct{}]("test", struct{}{}, time.Second, 4)
	var calls int32
	v, err := Request[struct{}, int](context.Background(), c, RequestLog{Method: "get"},
		func(ctx context.Context, _ struct{}) (int, error) {
			atomic.AddInt32(&calls, 1)
			return 42, nil
		})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRequestRetriesUntilSuccess(t *testing.T) {
	c := New[struct{}]("test", struct{}{}, 5*time.Millisecond, 4)
	var calls int32
	v, err := Request[struct{}, string](context.Background(), c, RequestLog{Method: "flaky"},
		func(ctx context.Context, _ struct{}) (string, error) {
			n := atomic.AddInt32(&calls, 1)
			if n < 3 {
				return "", errors.New("transient failure")
			}
			return "ok", nil
		})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(3))
}

func TestRequestWithLimitGivesUpAfterMaxAttempts(t *testing.T) {
	c := New[struct{}]("test", struct{}{}, 2*time.Millisecond, 4)
	var calls int32
	_, err := RequestWithLimit[struct{}, int](context.Background(), c, RequestLog{Method: "broadcast"}, 3,
		func(ctx context.Context, _ struct{}) (int, error) {
			atomic.AddInt32(&calls, 1)
			return 0, errors.New("always fails")
		})
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRequestRespectsContextCancellation(t *testing.T) {
	c := New[struct{}]("test", struct{}{}, time.Second, 4)
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	go func() {
		close(started)
		cancel()
	}()
	<-started
	_, err := Request[struct{}, int](ctx, c, RequestLog{Method: "slow"},
		func(ctx context.Context, _ struct{}) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})
	require.Error(t, err)
}

func TestBoundsConcurrentSubmissions(t *testing.T) {
	c := New[struct{}]("test", struct{}{}, time.Second, 2)
	var inFlight, maxSeen int32
	done := make(chan struct{})
	for i := 0; i < 6; i++ {
		go func() {
			_, _ = Request[struct{}, int](context.Background(), c, RequestLog{Method: "limited"},
				func(ctx context.Context, _ struct{}) (int, error) {
					n := atomic.AddInt32(&inFlight, 1)
					for {
						old := atomic.LoadInt32(&maxSeen)
						if n <= old || atomic.CompareAndSwapInt32(&maxSeen, old, n) {
							break
						}
					}
					time.Sleep(20 * time.Millisecond)
					atomic.AddInt32(&inFlight, -1)
					return 0, nil
				})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 6; i++ {
		<-done
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&maxSeen), int32(2))
}
