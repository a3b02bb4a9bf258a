// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package electoral

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dcaHooks wires the DCAConsensus reducer into the generic Hooks
// interface, closing the loop between the election lifecycle and the
// deposit-channel consensus rule from spec.md §4.7.
type dcaHooks struct {
	authorities int
	finalized   []uint64
}

func (h *dcaHooks) IsVoteDesired(e *Election[int, int, ChannelVote], validator string) bool { return true }
func (h *dcaHooks) IsVoteNeeded(e *Election[int, int, ChannelVote], validator string) bool  { return true }
func (h *dcaHooks) GenerateVoteProperties(e *Election[int, int, ChannelVote]) int            { return e.Properties }

func (h *dcaHooks) CheckConsensus(e *Election[int, int, ChannelVote], previous *uint64, authorities int) (*uint64, error) {
	votes := make([]ChannelVote, 0, len(e.Votes()))
	for _, r := range e.Votes() {
		votes = append(votes, r.Vote)
	}
	_, amount, ok := DCAConsensus(votes, authorities)
	if !ok {
		return nil, nil
	}
	if previous != nil && *previous == amount {
		return nil, nil
	}
	return &amount, nil
}

func (h *dcaHooks) OnFinalize(e *Election[int, int, ChannelVote], consensus *uint64) (bool, bool) {
	h.finalized = append(h.finalized, *consensus)
	return false, true
}

func TestSystemFinalizeDeliversConsensusOnce(t *testing.T) {
	hooks := &dcaHooks{authorities: 10}
	sys := NewSystem[int, int, ChannelVote, uint64](hooks, 10)
	id := sys.Open(0, 0)
	e, ok := sys.Election(id)
	require.True(t, ok)

	amounts := []uint64{1, 5, 3, 4, 7, 100, 8, 2, 9, 10}
	for i, a := range amounts {
		validator := string(rune('a' + i))
		e.Vote(validator, HashProperties([]byte(validator)), ChannelVote{BlockNumber: 1, Amount: a})
	}

	require.NoError(t, sys.Finalize())
	require.Len(t, hooks.finalized, 1)
	assert.Equal(t, uint64(1), hooks.finalized[0])

	// The election was deleted by OnFinalize; a second Finalize must not
	// deliver a second consensus for the same slot.
	_, stillOpen := sys.Election(id)
	assert.False(t, stillOpen)
	require.NoError(t, sys.Finalize())
	assert.Len(t, hooks.finalized, 1)
}

func TestElectionRefreshInvalidatesVotes(t *testing.T) {
	e := NewElection[int, int, int](ElectionIdentifier{ID: 1}, 10, 0)
	e.Vote("a", HashProperties([]byte("a")), 1)
	require.Len(t, e.Votes(), 1)

	e.Refresh(20, 0)
	assert.Empty(t, e.Votes())
	assert.Equal(t, uint32(1), e.Identifier.Extra)
	assert.Equal(t, 20, e.Properties)
}

func TestCompositeFinalizesConstituentsInOrder(t *testing.T) {
	var order []int
	mk := func(i int) Constituent {
		return finalizeFunc(func() error { order = append(order, i); return nil })
	}
	c := NewComposite(mk(1), mk(2), mk(3))
	require.NoError(t, c.Finalize())
	assert.Equal(t, []int{1, 2, 3}, order)
}

type finalizeFunc func() error

func (f finalizeFunc) Finalize() error { return f() }
