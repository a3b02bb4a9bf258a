// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package electoral

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitmapVotesSharesEntryForIdenticalVotes(t *testing.T) {
	bv := NewBitmapVotes[string]([]string{"a", "b", "c"})
	bv.Set(0, "x")
	bv.Set(1, "x")
	bv.Set(2, "y")

	all := bv.All()
	assert.Equal(t, "x", all["a"])
	assert.Equal(t, "x", all["b"])
	assert.Equal(t, "y", all["c"])
}

func TestBitmapVotesChangingAVoteMovesMembership(t *testing.T) {
	bv := NewBitmapVotes[string]([]string{"a", "b"})
	bv.Set(0, "x")
	bv.Set(0, "y")

	all := bv.All()
	assert.Equal(t, "y", all["a"])
	_, stillX := all["b"]
	assert.False(t, stillX)
}

func TestSharedDataStoreRefCounting(t *testing.T) {
	hash := func(d string) SharedDataRef { return SharedDataRef(sha256.Sum256([]byte(d))) }
	store := NewSharedDataStore(hash)

	ref1 := store.Put("payload")
	ref2 := store.Put("payload")
	assert.Equal(t, ref1, ref2)
	assert.Equal(t, 2, store.RefCount(ref1))

	store.Release(ref1)
	_, ok := store.Get(ref1)
	assert.True(t, ok)

	store.Release(ref1)
	_, ok = store.Get(ref1)
	assert.False(t, ok)
}
