// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package electoral

import "sort"

// SuccessThreshold is the supermajority spec.md §4.7 defines for consensus
// reduction, grounded on the original pallet's
// success_threshold_from_share_count: more than two thirds of the
// authority set, i.e. floor(2n/3)+1. spec.md §8 Scenario D's worked
// example (10 authorities, threshold 7) pins this down precisely — the
// naive ⌈2n/3⌉+1 reading of the prose would give 8, one more than the
// worked example uses, so floor(2n/3)+1 is the formula that actually
// matches it.
func SuccessThreshold(authorities int) int {
	if authorities <= 0 {
		return 0
	}
	return (2*authorities)/3 + 1
}

// ChannelVote is one authority's observation of a deposit channel's total
// ingressed amount as of block_number (spec.md §4.7 "deposit-channel
// example"; original_source ChannelTotalIngressed<TargetChain>).
type ChannelVote struct {
	BlockNumber uint64
	Amount      uint64
}

// LongestNonDecreasingByAmount returns the longest subsequence of votes
// (already sorted by BlockNumber ascending) whose Amount is non-decreasing,
// grounded on the original pallet's longest_increasing_subsequence_by_key
// (the original's "increasing" there means non-decreasing — ties are kept).
// Standard O(n log n) patience-sort algorithm: stdlib sort is used here
// because the corpus's own LIS call site (cf-elections) likewise reaches
// for a plain sorted-vec algorithm with no dedicated dependency, and the
// problem is small and self-contained enough that no pack library targets
// it specifically.
func LongestNonDecreasingByAmount(votes []ChannelVote) []ChannelVote {
	n := len(votes)
	if n == 0 {
		return nil
	}

	// tails[k] = index into votes of the smallest possible tail amount
	// for a non-decreasing subsequence of length k+1.
	tails := make([]int, 0, n)
	// prev[i] = index of the predecessor of votes[i] in its subsequence.
	prev := make([]int, n)

	for i, v := range votes {
		// Find the first tail whose amount exceeds v.Amount (non-decreasing
		// allows equal amounts to extend the same subsequence, so search
		// for strictly-greater to keep ties together).
		pos := sort.Search(len(tails), func(k int) bool {
			return votes[tails[k]].Amount > v.Amount
		})
		if pos > 0 {
			prev[i] = tails[pos-1]
		} else {
			prev[i] = -1
		}
		if pos == len(tails) {
			tails = append(tails, i)
		} else {
			tails[pos] = i
		}
	}

	length := len(tails)
	result := make([]ChannelVote, length)
	for k, idx := length-1, tails[length-1]; k >= 0; k-- {
		result[k] = votes[idx]
		idx = prev[idx]
	}
	return result
}

// DCAConsensus implements spec.md §4.7's "Consensus rules (deposit-channel
// example)": sort the resolved per-authority votes by block number, take
// the longest non-decreasing-by-amount subsequence, and if it reaches
// success-threshold report (block_number at position threshold-1,
// amount at position len-threshold). ok is false if the threshold isn't
// met. votes must already contain exactly one entry per authority (the
// caller substitutes an authority's last known vote if it didn't vote this
// round, per spec.md §4.7 "take each authority's vote (or the last known
// value if they did not vote)").
func DCAConsensus(votes []ChannelVote, authorities int) (consensusBlock uint64, consensusAmount uint64, ok bool) {
	threshold := SuccessThreshold(authorities)
	if threshold == 0 || len(votes) < threshold {
		return 0, 0, false
	}

	sorted := make([]ChannelVote, len(votes))
	copy(sorted, votes)
	// SliceStable: votes tying on BlockNumber must keep their incoming
	// (per-authority) order, or the LIS reducer's input becomes
	// implementation-defined for ties.
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].BlockNumber < sorted[j].BlockNumber })

	contributing := LongestNonDecreasingByAmount(sorted)
	if len(contributing) < threshold {
		return 0, 0, false
	}

	consensusBlock = contributing[threshold-1].BlockNumber
	consensusAmount = contributing[len(contributing)-threshold].Amount
	return consensusBlock, consensusAmount, true
}
