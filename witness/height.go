// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package witness implements the block-height and per-height witnessing
// state machines spec.md §4.8 describes: a block height witnesser (BHW)
// tracks the canonical height of an external chain and detects reorgs, and
// a block witnesser (BW) manages per-height elections over "what to look
// for at this height". Grounded on
// `original_source/engine/src/eth/merged_block_items_stream.rs`,
// `original_source/engine/src/witness/eth_elections.rs` and
// `original_source/state-chain/runtime/src/chainflip/witnessing/bitcoin_elections.rs`.
// Absent from the ceremony library; expressed here as explicit state
// structs, the same discipline the keygen/signing packages use for their
// own round-local state instead of a Rust trait-object state machine.
package witness

import (
	"fmt"
	"sync"

	logging "github.com/ipfs/go-log"
)

var log = logging.Logger("witness")

// Hash is an opaque external-chain block hash.
type Hash [32]byte

// Header is one validator's claim about a single external-chain block
// (spec.md §4.8 "each carrying (height, hash, parent_hash)").
type Header struct {
	Height     uint64
	Hash       Hash
	ParentHash Hash
}

// Headers is a non-empty run of consecutive headers, each chained to the
// previous by parent hash (spec.md §4.8 "NonemptyContinuousHeaders").
type Headers []Header

// NewHeaders validates hs as a non-empty, height-consecutive,
// parent-hash-chained run before returning it as Headers.
func NewHeaders(hs []Header) (Headers, error) {
	if len(hs) == 0 {
		return nil, fmt.Errorf("witness: header run must be non-empty")
	}
	for i := 1; i < len(hs); i++ {
		if hs[i].Height != hs[i-1].Height+1 {
			return nil, fmt.Errorf("witness: header run not height-consecutive at index %d (%d -> %d)", i, hs[i-1].Height, hs[i].Height)
		}
		if hs[i].ParentHash != hs[i-1].Hash {
			return nil, fmt.Errorf("witness: header run not parent-hash-chained at index %d", i)
		}
	}
	return Headers(hs), nil
}

// ProgressKind distinguishes the two shapes of ChainProgress spec.md §4.8
// names.
type ProgressKind int

const (
	ProgressContinuous ProgressKind = iota
	ProgressReorg
)

// ChainProgress describes what happened to the canonical chain since the
// last consensus round: either it simply advanced (Continuous) or a
// parent-hash mismatch was detected and some range needs rewitnessing
// (Reorg), spec.md §4.8 "Continuous(new_height) | Reorg(range, new_tip)".
type ChainProgress struct {
	Kind ProgressKind

	// Set when Kind == ProgressContinuous.
	NewHeight uint64

	// Set when Kind == ProgressReorg: the inclusive height range that must
	// be rewitnessed, and the new canonical tip height.
	ReorgFrom uint64
	ReorgTo   uint64
	NewTip    uint64
}

// BlockHeightWitnesser tracks the canonical height of an external chain
// (spec.md §4.8 "block height witnesser (BHW)"). Callers feed it the
// consensus-agreed canonical header run for each round (reduction of
// per-validator votes to one winning run is the caller's consensus-rule
// responsibility, not the BHW's); it detects reorgs by parent-hash
// mismatch against its currently tracked tip and reports a ChainProgress.
type BlockHeightWitnesser struct {
	mtx       sync.Mutex
	tip       Header
	hasTip    bool
	reorgHook func(from, to, newTip uint64)
}

// NewBlockHeightWitnesser creates a BHW with no tracked tip yet. reorgHook,
// if non-nil, is invoked synchronously whenever Consume detects a reorg
// (spec.md §4.8 "Reorg events are forwarded to a ReorgHook").
func NewBlockHeightWitnesser(reorgHook func(from, to, newTip uint64)) *BlockHeightWitnesser {
	return &BlockHeightWitnesser{reorgHook: reorgHook}
}

// Consume processes the next consensus-agreed canonical header run and
// returns the resulting ChainProgress.
func (w *BlockHeightWitnesser) Consume(run Headers) ChainProgress {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	newTip := run[len(run)-1]

	if !w.hasTip {
		w.tip = newTip
		w.hasTip = true
		return ChainProgress{Kind: ProgressContinuous, NewHeight: newTip.Height}
	}

	// Locate where the new run overlaps the height we were last tracking.
	overlap := -1
	for i, h := range run {
		if h.Height == w.tip.Height {
			overlap = i
			break
		}
	}

	if overlap >= 0 && run[overlap].Hash == w.tip.Hash {
		// The run agrees with our tracked tip at the overlap point: no
		// reorg, the chain simply advanced.
		w.tip = newTip
		return ChainProgress{Kind: ProgressContinuous, NewHeight: newTip.Height}
	}

	if overlap < 0 && run[0].Height == w.tip.Height+1 && run[0].ParentHash == w.tip.Hash {
		// The run starts right after our tracked tip and chains onto it by
		// parent hash: no reorg.
		w.tip = newTip
		return ChainProgress{Kind: ProgressContinuous, NewHeight: newTip.Height}
	}

	// Either the run disagrees at the overlap point, or it neither overlaps
	// the tracked tip nor chains onto it by parent hash; in both cases treat
	// everything from the earlier of the two tips forward as needing rewitnessing.
	reorgFrom := min(w.tip.Height, run[0].Height)
	w.tip = newTip
	progress := ChainProgress{Kind: ProgressReorg, ReorgFrom: reorgFrom, ReorgTo: newTip.Height, NewTip: newTip.Height}
	if w.reorgHook != nil {
		w.reorgHook(progress.ReorgFrom, progress.ReorgTo, progress.NewTip)
	}
	log.Infof("witness: reorg detected, rewitnessing heights %d-%d, new tip %d", progress.ReorgFrom, progress.ReorgTo, progress.NewTip)
	return progress
}

// Tip returns the currently tracked canonical tip.
func (w *BlockHeightWitnesser) Tip() (Header, bool) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.tip, w.hasTip
}
