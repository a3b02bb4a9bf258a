// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package witness

import (
	"fmt"
	"sort"
	"sync"
)

// ElectionType distinguishes the two kinds of per-height election the
// prewitness/finalise policy can have open at once for the same height
// (spec.md §4.8 "ongoing: map<height, election_type>").
type ElectionType int

const (
	ElectionPrewitness ElectionType = iota
	ElectionFinalise
)

func (t ElectionType) String() string {
	if t == ElectionPrewitness {
		return "prewitness"
	}
	return "finalise"
}

// Policy selects one of spec.md §4.8's two composable witnessing
// strategies.
type Policy int

const (
	// PolicyPrewitnessThenFinalise emits a Prewitnessed event on first
	// consensus, then a finalised event once consensus is reached again at
	// height+safetyMargin without contradiction.
	PolicyPrewitnessThenFinalise Policy = iota
	// PolicyFinaliseOnly only ever emits the finalised event.
	PolicyFinaliseOnly
)

// Event is what the BlockWitnesser emits when an election's consensus
// result is ready to act on.
type Event[P any] struct {
	Height     uint64
	Type       ElectionType
	Properties P
}

// BlockWitnesser manages per-height elections for one chain, generic over
// P (the per-height "what to look for" properties — e.g. active deposit
// channels, vault addresses, in-flight transaction ids), grounded on
// `original_source`'s `GenericBlockWitnesser`/`BlockWitnesserInstance`.
type BlockWitnesser[P any] struct {
	mtx sync.Mutex

	policy                 Policy
	safetyMargin           uint64
	maxOngoingElections    int
	maxOptimisticElections int

	propertiesFn func(height uint64) P

	ongoing       map[uint64]ElectionType
	processedUpTo uint64
	highestOpened uint64
}

// NewBlockWitnesser creates a BW. propertiesFn computes the election
// properties for a given height on demand, matching the original's
// `election_properties(height)` hook.
func NewBlockWitnesser[P any](policy Policy, safetyMargin uint64, maxOngoingElections, maxOptimisticElections int, propertiesFn func(height uint64) P) *BlockWitnesser[P] {
	return &BlockWitnesser[P]{
		policy:                 policy,
		safetyMargin:           safetyMargin,
		maxOngoingElections:    maxOngoingElections,
		maxOptimisticElections: maxOptimisticElections,
		propertiesFn:           propertiesFn,
		ongoing:                make(map[uint64]ElectionType),
	}
}

// OnProgress reacts to a ChainProgress from the BHW (spec.md §4.8 "A block
// witnesser (BW) subscribes to ChainProgress and manages per-height
// elections"): Continuous progress opens new elections up to the new
// height (bounded by max_ongoing_elections/max_optimistic_elections);
// Reorg progress additionally re-opens every height in the reorged range so
// it gets rewitnessed.
func (w *BlockWitnesser[P]) OnProgress(progress ChainProgress) []Event[P] {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	var events []Event[P]

	if progress.Kind == ProgressReorg {
		for h := progress.ReorgFrom; h <= progress.ReorgTo; h++ {
			delete(w.ongoing, h)
			events = append(events, w.openLocked(h)...)
		}
	}

	target := progress.NewHeight
	if progress.Kind == ProgressReorg {
		target = progress.NewTip
	}

	optimisticCeiling := target + uint64(w.maxOptimisticElections)
	for h := w.highestOpened + 1; h <= optimisticCeiling; h++ {
		if len(w.ongoing) >= w.maxOngoingElections {
			log.Warnf("witness: max_ongoing_elections (%d) reached, deferring height %d", w.maxOngoingElections, h)
			break
		}
		if h > target && h > w.highestOpened+uint64(w.maxOptimisticElections) {
			break
		}
		events = append(events, w.openLocked(h)...)
	}

	return events
}

// openLocked opens (or re-opens) the election(s) for height h, per the
// configured policy, and returns the events that result. Must be called
// with w.mtx held.
func (w *BlockWitnesser[P]) openLocked(h uint64) []Event[P] {
	if h > w.highestOpened {
		w.highestOpened = h
	}
	properties := w.propertiesFn(h)

	switch w.policy {
	case PolicyPrewitnessThenFinalise:
		if _, alreadyPre := w.ongoing[h]; !alreadyPre {
			w.ongoing[h] = ElectionPrewitness
			return []Event[P]{{Height: h, Type: ElectionPrewitness, Properties: properties}}
		}
		return nil
	default: // PolicyFinaliseOnly
		w.ongoing[h] = ElectionFinalise
		return nil
	}
}

// ReadyToFinalise reports whether the chain has progressed far enough past
// height for its election to be finalised without further contradiction
// risk (spec.md §4.8 "on consensus reached at height h + safety_margin
// without contradiction, emit a finalised event").
func (w *BlockWitnesser[P]) ReadyToFinalise(currentTip, height uint64) bool {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return currentTip >= height+w.safetyMargin
}

// Finalise is called when consensus is reached for height h without
// contradiction (spec.md §4.8 "on consensus reached at height h +
// safety_margin without contradiction, emit a finalised event"). It
// retires the election and, for deposit-channel-style policies, advances
// processed_up_to monotonically so callers never see the same height
// finalised twice.
func (w *BlockWitnesser[P]) Finalise(h uint64) (Event[P], error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if h <= w.processedUpTo && w.processedUpTo != 0 {
		return Event[P]{}, fmt.Errorf("witness: height %d already finalised (processed_up_to=%d)", h, w.processedUpTo)
	}

	properties := w.propertiesFn(h)
	delete(w.ongoing, h)
	if h > w.processedUpTo {
		w.processedUpTo = h
	}
	return Event[P]{Height: h, Type: ElectionFinalise, Properties: properties}, nil
}

// ProcessedUpTo reports how far finalised witnessing has progressed
// (spec.md §4.8 "processed_up_to: external callers learn how far finalised
// witnessing has progressed").
func (w *BlockWitnesser[P]) ProcessedUpTo() uint64 {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.processedUpTo
}

// Ongoing returns a snapshot (a copy) of the currently open elections,
// keyed by height. The map has no order; OngoingHeights gives the heights
// sorted.
func (w *BlockWitnesser[P]) Ongoing() map[uint64]ElectionType {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	out := make(map[uint64]ElectionType, len(w.ongoing))
	for k, v := range w.ongoing {
		out[k] = v
	}
	return out
}

// OngoingHeights returns the heights with an open election, sorted
// ascending — a convenience for callers driving deterministic processing
// order.
func (w *BlockWitnesser[P]) OngoingHeights() []uint64 {
	w.mtx.Lock()
	heights := make([]uint64, 0, len(w.ongoing))
	for h := range w.ongoing {
		heights = append(heights, h)
	}
	w.mtx.Unlock()
	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })
	return heights
}

// WithinSafetyBuffer reports whether an event observed at eventHeight still
// counts against a deposit channel that logically expired at
// channelExpireAt, given safetyBuffer S (spec.md §4.8 "deposit channels
// that logically expire at external height h continue to be witnessed
// through h + S"; spec.md §8 Scenario F: an event at block 12 against a
// channel expiring at block 10 with S=8 is still witnessed, since
// 12 <= 10+8).
func WithinSafetyBuffer(eventHeight, channelExpireAt, safetyBuffer uint64) bool {
	return eventHeight <= channelExpireAt+safetyBuffer
}

// ValidateChannelRecycle checks the safety-buffer recycling invariant
// spec.md §4.8 names: `new_channel.opened_at - previous_channel.expire_at
// >= 2*S`, grounded on the bitcoin_elections.rs comment explaining why a
// single safety buffer isn't enough at a channel-reuse boundary (a deposit
// near the old channel's expiry could reorg forward past it, then the slot
// recycles and a second reorg could make the same deposit appear to belong
// to the new channel too).
func ValidateChannelRecycle(previousExpireAt, newOpenedAt, safetyBuffer uint64) bool {
	if newOpenedAt < previousExpireAt {
		return false
	}
	return newOpenedAt-previousExpireAt >= 2*safetyBuffer
}
