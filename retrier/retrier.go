// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package retrier provides a generic request retrier (spec.md §6): it wraps
// a submission function in a timeout, and on failure retries it after an
// exponentially increasing delay plus jitter, either forever or up to a
// caller-supplied attempt limit, while bounding how many submissions are
// in flight at once.
//
// It generalises the ceremony library's round-based message-resend idiom
// (a broadcast stage keeps its own outbound message cached and the runner
// re-emits it on timeout) into a standalone, reusable client a caller can
// hand any request-shaped closure to.
package retrier

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	logging "github.com/ipfs/go-log"
	"golang.org/x/sync/semaphore"
)

var log = logging.Logger("retrier")

// maxDelay bounds the exponential backoff: no retry ever waits longer than
// this regardless of how many attempts have already failed.
const maxDelay = 10 * time.Minute

// RequestLog names a request for logging and per-method metrics, mirroring
// the (rpc_method, args) pair a caller supplies alongside each submission.
type RequestLog struct {
	Method string
	Args   string
}

func (l RequestLog) String() string {
	if l.Args == "" {
		return l.Method
	}
	return fmt.Sprintf("%s(%s)", l.Method, l.Args)
}

// retryLimit is either "retry forever" (used for requests whose failure is
// always transient and attributable to the environment, e.g. a flaky node)
// or "give up after N attempts" (used for requests that can legitimately
// fail, e.g. a broadcast that was beaten to inclusion by someone else).
type retryLimit struct {
	unlimited bool
	max       uint32
}

// requestFunc is the type-erased form of a caller's submission closure: the
// generic Request/RequestWithLimit entry points box their typed result into
// `any` here and unbox it again once the result comes back, playing the
// role Rust's `Box<dyn Any>` downcast plays in the original client.
type requestFunc func(ctx context.Context) (any, error)

type result struct {
	value any
	err   error
}

type pendingRequest struct {
	id       uint64
	ctx      context.Context
	log      RequestLog
	limit    retryLimit
	fn       requestFunc
	attempt  uint32
	resultCh chan result
}

type submissionResult struct {
	id      uint64
	attempt uint32
	value   any
	err     error
}

type retryEvent struct {
	id      uint64
	attempt uint32
}

// Client is a generic, named retrier bound to a single underlying client
// value of type C (an RPC client, a chain subscription handle, whatever a
// submission closure needs). All requests submitted through it are served
// by one internal goroutine, with concurrent submissions bounded by a
// semaphore rather than manual bookkeeping: a blocked Acquire call is the
// FIFO overflow buffer.
type Client[C any] struct {
	name           string
	client         C
	initialTimeout time.Duration
	sem            *semaphore.Weighted
	reqCh          chan *pendingRequest
}

// New starts a retrier named `name` (used in logs and metrics) wrapping
// `client`, applying `initialTimeout` to a request's first attempt, and
// running at most `maxConcurrentSubmissions` submissions at once.
func New[C any](name string, client C, initialTimeout time.Duration, maxConcurrentSubmissions int64) *Client[C] {
	c := &Client[C]{
		name:           name,
		client:         client,
		initialTimeout: initialTimeout,
		sem:            semaphore.NewWeighted(maxConcurrentSubmissions),
		reqCh:          make(chan *pendingRequest),
	}
	go c.run()
	return c
}

// Request submits fn for retrying indefinitely until it succeeds or ctx is
// cancelled. Use this for requests whose failure is always transient and
// never a legitimate terminal outcome.
func Request[C any, T any](ctx context.Context, c *Client[C], log RequestLog, fn func(context.Context, C) (T, error)) (T, error) {
	return doRequest[C, T](ctx, c, log, retryLimit{unlimited: true}, fn)
}

// RequestWithLimit submits fn for retrying up to `attempts` times, returning
// an error once the limit is reached without success. Use this for requests
// that can legitimately and permanently fail (e.g. a broadcast that lost a
// race to inclusion).
func RequestWithLimit[C any, T any](ctx context.Context, c *Client[C], log RequestLog, attempts uint32, fn func(context.Context, C) (T, error)) (T, error) {
	return doRequest[C, T](ctx, c, log, retryLimit{max: attempts}, fn)
}

func doRequest[C any, T any](ctx context.Context, c *Client[C], rl RequestLog, limit retryLimit, fn func(context.Context, C) (T, error)) (T, error) {
	var zero T
	resultCh := make(chan result, 1)
	pr := &pendingRequest{
		ctx:      ctx,
		log:      rl,
		limit:    limit,
		resultCh: resultCh,
		fn:       func(ctx context.Context) (any, error) { return fn(ctx, c.client) },
	}

	select {
	case c.reqCh <- pr:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case res := <-resultCh:
		if res.err != nil {
			return zero, res.err
		}
		v, ok := res.value.(T)
		if !ok {
			return zero, fmt.Errorf("retrier %s: result for %s was not of the expected type", c.name, rl)
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// run is the retrier's single owning goroutine: every piece of mutable
// state (the pending-request table, the next request id) is only ever
// touched here, so none of it needs a mutex.
func (c *Client[C]) run() {
	var nextID uint64
	pending := make(map[uint64]*pendingRequest)
	submissionDone := make(chan submissionResult, 64)
	retryFired := make(chan retryEvent, 64)

	for {
		select {
		case pr := <-c.reqCh:
			nextID++
			pr.id = nextID
			pending[pr.id] = pr
			log.Debugf("retrier %s: received request %q, assigned id %d", c.name, pr.log, pr.id)
			c.submit(pr, submissionDone)

		case sr := <-submissionDone:
			pr, ok := pending[sr.id]
			if !ok {
				continue
			}
			totalRequests.WithLabelValues(c.name, pr.log.Method).Inc()
			if sr.err == nil {
				successfulRequests.WithLabelValues(c.name, pr.log.Method).Inc()
				pr.resultCh <- result{value: sr.value}
				close(pr.resultCh)
				delete(pending, sr.id)
				continue
			}

			half := maxSleepDuration(c.initialTimeout, sr.attempt) / 2
			sleep := half
			if half > 0 {
				sleep += time.Duration(rand.Int63n(int64(half)))
			}
			log.Errorf("retrier %s: request %q (id %d) attempt %d failed: %v. Retrying in %s",
				c.name, pr.log, sr.id, sr.attempt, sr.err, sleep)

			id, attempt := sr.id, sr.attempt
			time.AfterFunc(sleep, func() {
				retryFired <- retryEvent{id: id, attempt: attempt}
			})

		case rf := <-retryFired:
			pr, ok := pending[rf.id]
			if !ok {
				continue
			}
			if pr.ctx.Err() != nil {
				log.Debugf("retrier %s: dropped request %q (id %d), not retrying", c.name, pr.log, rf.id)
				delete(pending, rf.id)
				continue
			}

			next := rf.attempt + 1
			if !pr.limit.unlimited && next >= pr.limit.max {
				pr.resultCh <- result{err: fmt.Errorf("retrier %s: reached maximum of %d attempts for %s", c.name, pr.limit.max, pr.log)}
				close(pr.resultCh)
				delete(pending, rf.id)
				continue
			}

			pr.attempt = next
			c.submit(pr, submissionDone)
		}
	}
}

// submit runs one attempt of pr in its own goroutine. Acquiring the
// semaphore is what actually bounds concurrency and provides the FIFO
// overflow queue: a submission beyond the concurrency limit simply blocks
// on Acquire until an earlier one releases.
func (c *Client[C]) submit(pr *pendingRequest, done chan<- submissionResult) {
	go func(id uint64, attempt uint32) {
		if err := c.sem.Acquire(pr.ctx, 1); err != nil {
			done <- submissionResult{id: id, attempt: attempt, err: err}
			return
		}
		defer c.sem.Release(1)

		timeout := maxSleepDuration(c.initialTimeout, attempt)
		ctx, cancel := context.WithTimeout(pr.ctx, timeout)
		defer cancel()

		val, err := pr.fn(ctx)
		if err == nil && ctx.Err() != nil {
			err = fmt.Errorf("request timed out: %w", ctx.Err())
		}
		done <- submissionResult{id: id, attempt: attempt, value: val, err: err}
	}(pr.id, pr.attempt)
}

// maxSleepDuration is the ceiling applied to both a submission's own
// context timeout and the backoff delay following its failure: initial
// doubled once per attempt, capped at maxDelay.
func maxSleepDuration(initial time.Duration, attempt uint32) time.Duration {
	d := initial
	for i := uint32(0); i < attempt; i++ {
		if d >= maxDelay {
			return maxDelay
		}
		d *= 2
	}
	if d > maxDelay || d <= 0 {
		return maxDelay
	}
	return d
}
