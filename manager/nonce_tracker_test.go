// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const initialNonce = 10

func TestNonceTrackerIncrementsOnSuccess(t *testing.T) {
	nt := NewNonceTracker(initialNonce)
	n := nt.Next()
	action := nt.Observe(n, OutcomeAccepted)
	assert.Equal(t, ActionNone, action)
	assert.Equal(t, uint64(initialNonce+1), nt.Anticipated())
}

func TestNonceTrackerRetriesOnNonceInPool(t *testing.T) {
	nt := NewNonceTracker(initialNonce)
	n := nt.Next()
	action := nt.Observe(n, OutcomeNonceInPool)
	assert.Equal(t, ActionRetryAtNextNonce, action)
	assert.Equal(t, uint64(initialNonce+1), nt.Anticipated())

	n2 := nt.Next()
	assert.Equal(t, uint64(initialNonce+1), n2)
	nt.Observe(n2, OutcomeAccepted)
	assert.Equal(t, uint64(initialNonce+2), nt.Anticipated())
}

func TestNonceTrackerRetriesOnStaleNonce(t *testing.T) {
	nt := NewNonceTracker(initialNonce)
	n := nt.Next()
	action := nt.Observe(n, OutcomeNonceStale)
	assert.Equal(t, ActionRetryAtNextNonce, action)
	assert.Equal(t, uint64(initialNonce+1), nt.Anticipated())
}

func TestNonceTrackerDoesNotAdvanceOnBadSignature(t *testing.T) {
	nt := NewNonceTracker(initialNonce)
	n := nt.Next()
	action := nt.Observe(n, OutcomeBadSignature)
	assert.Equal(t, ActionRefreshRuntimeVersionAndRetry, action)
	// The bad-signature outcome must not advance anticipated past what
	// Next() already reserved for the retry.
	assert.Equal(t, uint64(initialNonce+1), nt.Anticipated())
}

func TestNonceTrackerGivesUpOnUnrelatedError(t *testing.T) {
	nt := NewNonceTracker(initialNonce)
	n := nt.Next()
	action := nt.Observe(n, OutcomeUnrelatedError)
	assert.Equal(t, ActionGiveUp, action)
	assert.Equal(t, uint64(initialNonce+1), nt.Anticipated())
}

func TestNonceTrackerRelease(t *testing.T) {
	nt := NewNonceTracker(initialNonce)
	n := nt.Next()
	nt.Release(n)
	assert.Equal(t, uint64(initialNonce), nt.Anticipated())
}
