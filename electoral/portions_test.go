// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package electoral

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebalancePortionsSumsToMax(t *testing.T) {
	amounts := map[string]uint64{"a": 1, "b": 1, "c": 1}
	rng := rand.New(rand.NewSource(1))
	portions := RebalancePortions(amounts, rng)

	require.Len(t, portions, 3)
	var sum uint64
	for _, p := range portions {
		sum += p
	}
	assert.Equal(t, PortionMax, sum)
}

func TestRebalancePortionsDustGoesToOneEntry(t *testing.T) {
	// 1/3 does not divide PortionMax evenly; exactly one entry should
	// pick up the leftover dust rather than it being silently dropped.
	amounts := map[string]uint64{"a": 1, "b": 1, "c": 1}
	rng := rand.New(rand.NewSource(7))
	portions := RebalancePortions(amounts, rng)

	base := PortionMax / 3
	extra := 0
	for _, p := range portions {
		if p > base {
			extra++
		}
	}
	assert.Equal(t, 1, extra)
}

func TestRebalancePortionsEmptyTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	portions := RebalancePortions(map[string]uint64{"a": 0, "b": 0}, rng)
	assert.Empty(t, portions)
}
