// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package manager

import "sync"

// SubmissionOutcome classifies the RPC result of submitting a signed
// extrinsic (spec.md §6 "the submitter... handles BadSignature, Stale,
// Future, InPool errors"), grounded on the four outcomes distinguished by
// the original submission watcher's tests.
type SubmissionOutcome int

const (
	OutcomeAccepted SubmissionOutcome = iota
	// OutcomeNonceInPool: an extrinsic at this nonce is already sitting in
	// the transaction pool — this nonce is spent, move on to the next one.
	OutcomeNonceInPool
	// OutcomeNonceStale: this nonce was already consumed by a finalised
	// block — also spent, move on to the next one.
	OutcomeNonceStale
	// OutcomeBadSignature: the extrinsic's signature doesn't verify against
	// the runtime the node is on, almost always because the engine's
	// cached runtime version is stale. The nonce itself was never
	// consumed.
	OutcomeBadSignature
	// OutcomeUnrelatedError: some other failure (network error, the call
	// itself reverting) with no nonce implication; give up and let the
	// caller decide whether to resubmit from scratch.
	OutcomeUnrelatedError
)

// NonceAction is what Observe tells the submitter to do next.
type NonceAction int

const (
	ActionNone NonceAction = iota
	ActionRetryAtNextNonce
	ActionRefreshRuntimeVersionAndRetry
	ActionGiveUp
)

// NonceTracker keeps a single anticipated nonce per signing account
// (spec.md §6 "per-account nonce tracking"), grounded on
// submission_watcher/tests.rs's SubmissionWatcher.anticipated_nonce: success
// and both nonce-conflict outcomes advance it past the nonce that was just
// consumed; a bad-signature outcome does not, since the nonce was never
// actually used.
type NonceTracker struct {
	mtx         sync.Mutex
	anticipated uint64
}

// NewNonceTracker starts tracking from initial, the nonce the chain
// reports as the account's current nonce at startup.
func NewNonceTracker(initial uint64) *NonceTracker {
	return &NonceTracker{anticipated: initial}
}

// Next reserves and returns the next nonce to submit at, advancing the
// anticipated counter so a concurrent submission never reuses it. Callers
// that end up not using a reserved nonce (the request was cancelled before
// submission) should call Release to give it back.
func (t *NonceTracker) Next() uint64 {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	n := t.anticipated
	t.anticipated++
	return n
}

// Release returns a reserved-but-unused nonce, rewinding the anticipated
// counter only if nothing higher has been reserved since (spec.md §5
// "callers must invoke an explicit recover if they take one but do not use
// it, to avoid leaking slots" — stated there for chain nonce-account
// pools, applied here to the same leak risk on the signing-account nonce).
func (t *NonceTracker) Release(nonce uint64) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.anticipated == nonce+1 {
		t.anticipated = nonce
	}
}

// Observe records the outcome of a submission at nonce and returns the
// action the submitter should take next.
func (t *NonceTracker) Observe(nonce uint64, outcome SubmissionOutcome) NonceAction {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	switch outcome {
	case OutcomeAccepted:
		if t.anticipated <= nonce {
			t.anticipated = nonce + 1
		}
		return ActionNone
	case OutcomeNonceInPool, OutcomeNonceStale:
		if t.anticipated <= nonce {
			t.anticipated = nonce + 1
		}
		return ActionRetryAtNextNonce
	case OutcomeBadSignature:
		return ActionRefreshRuntimeVersionAndRetry
	default:
		return ActionGiveUp
	}
}

// Anticipated returns the next nonce a fresh submission should use.
func (t *NonceTracker) Anticipated() uint64 {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.anticipated
}
