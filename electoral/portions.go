// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package electoral

import (
	"math/rand"
	"sort"
)

// PortionMax is the fixed-point denominator a Portion is expressed against
// (an entry's share of the whole is entry / PortionMax), grounded on
// original_source's Portion::MAX fixed-point convention.
const PortionMax uint64 = 1 << 32

// RebalancePortions converts raw per-entry amounts into fixed-point
// portions that sum to exactly PortionMax, resolving spec.md §9's open
// question of what happens to the rounding dust left over from dividing
// PortionMax proportionally: original_source's
// vault/transactions/portions.rs assigns every entry's floor(amount *
// PortionMax / total) and then hands the leftover dust to one entry picked
// from a shuffle of the others, rather than always the same one (so no
// single staker is systematically favoured across repeated rebalances).
// rng must be seeded deterministically by the caller (e.g. from a block
// hash) so every validator reaches the same result.
func RebalancePortions(amounts map[string]uint64, rng *rand.Rand) map[string]uint64 {
	var total uint64
	for _, a := range amounts {
		total += a
	}
	portions := make(map[string]uint64, len(amounts))
	if total == 0 {
		return portions
	}

	ids := make([]string, 0, len(amounts))
	for id := range amounts {
		ids = append(ids, id)
	}
	// Deterministic base order before shuffling, so the same input map
	// produces the same shuffle permutation given the same rng sequence.
	sort.Strings(ids)

	var assigned uint64
	for _, id := range ids {
		p := amounts[id] * PortionMax / total
		portions[id] = p
		assigned += p
	}

	dust := PortionMax - assigned
	if dust == 0 || len(ids) == 0 {
		return portions
	}

	shuffled := make([]string, len(ids))
	copy(shuffled, ids)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	portions[shuffled[len(shuffled)-1]] += dust
	return portions
}
