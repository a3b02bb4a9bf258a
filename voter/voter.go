// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package voter implements the per-chain voter adapter spec.md §4.9
// describes: given a block witnesser election's properties, query the
// chain, filter its logs/transactions against what the election is
// looking for, and extract a vote. Grounded on
// `original_source/engine/src/eth/stake_manager.rs` (event filtering and
// extraction shape) and `original_source/src/vault/witness/btc.rs`
// (amount/address extraction and validation).
package voter

import (
	"context"
	"fmt"

	logging "github.com/ipfs/go-log"

	"github.com/chainbridge-relay/engine/retrier"
)

var log = logging.Logger("voter")

// BWElectionProperties is what a block witnesser election hands the voter
// adapter (spec.md §4.9 "Given a BWElectionProperties{block_height,
// properties, election_type}"): which height to query and what to look
// for there.
type BWElectionProperties struct {
	BlockHeight    uint64
	DepositAddrs   [][]byte
	VaultAddrs     [][]byte
	TransactionIDs [][]byte
	ElectionType   string
}

// Entry is one matched on-chain item before it's been reduced to a Vote:
// an address/tx-id match plus the raw payload.
type Entry struct {
	Address        []byte
	TransactionID   []byte
	Amount         uint64
	Sender         []byte
	Payload        []byte
	AdditionalData []byte
	ReferenceHash  []byte
	ReferenceHeight uint64
}

// Vote is the per-chain voter's reduced output: the set of matched entries
// at this height plus the block reference to carry alongside it (spec.md
// §4.9 "Returns the vote and the hash/height to be included as a
// return-reference").
type Vote struct {
	Entries       []Entry
	ReferenceHash []byte
	ReferenceHeight uint64
}

// ChainQuerier is the narrow surface a voter adapter needs from a chain
// client: list every candidate item (log/transaction/UTXO, chain-specific)
// observed at a given height. Concrete adapters wrap a chain-specific RPC
// client behind this.
type ChainQuerier[Item any] interface {
	QueryBlock(ctx context.Context, height uint64) ([]Item, error)
}

// Extractor pulls the sender/amount/payload fields a Vote needs out of a
// chain-specific Item, or reports that the item isn't relevant.
type Extractor[Item any] func(item Item) (Entry, bool)

// Validator checks size and referenced-account constraints on an already
// extracted Entry (spec.md §4.9 "validates size and referenced-account
// constraints"); returning false drops the entry from the vote.
type Validator func(Entry) bool

// Adapter implements the electoral system's vote(properties) -> option<vote>
// hook for one chain (spec.md §4.9), using the retrier for chain queries
// (C7) so a transient RPC failure doesn't silently produce an empty vote.
type Adapter[C any, Item any] struct {
	client     *retrier.Client[C]
	query      func(ctx context.Context, client C, height uint64) ([]Item, error)
	extract    Extractor[Item]
	validate   Validator
	maxEntries int
}

// NewAdapter builds a chain-specific voter adapter. query performs the
// actual RPC call against the wrapped client; extract filters+converts raw
// chain items into Entry values (or rejects them); validate enforces
// size/referenced-account constraints on top of that. maxEntries bounds
// how many matched entries a single vote may carry (0 means unbounded).
func NewAdapter[C any, Item any](
	client *retrier.Client[C],
	query func(ctx context.Context, client C, height uint64) ([]Item, error),
	extract Extractor[Item],
	validate Validator,
	maxEntries int,
) *Adapter[C, Item] {
	return &Adapter[C, Item]{client: client, query: query, extract: extract, validate: validate, maxEntries: maxEntries}
}

// Vote implements spec.md §4.9's four steps: query the chain at
// block_height via the retrier, filter/extract matching entries, validate
// each, and return the reduced vote (or false if nothing qualified).
func (a *Adapter[C, Item]) Vote(ctx context.Context, props BWElectionProperties) (Vote, bool, error) {
	items, err := retrier.Request(ctx, a.client, retrier.RequestLog{Method: "QueryBlock", Args: fmt.Sprintf("height=%d", props.BlockHeight)},
		func(ctx context.Context, client C) ([]Item, error) {
			return a.query(ctx, client, props.BlockHeight)
		})
	if err != nil {
		return Vote{}, false, err
	}

	var entries []Entry
	for _, item := range items {
		entry, ok := a.extract(item)
		if !ok {
			continue
		}
		if a.validate != nil && !a.validate(entry) {
			log.Debugf("voter: dropping entry at height %d failing validation", props.BlockHeight)
			continue
		}
		entry.ReferenceHeight = props.BlockHeight
		entries = append(entries, entry)
		if a.maxEntries > 0 && len(entries) >= a.maxEntries {
			log.Warnf("voter: height %d hit maxEntries=%d, truncating remaining candidates", props.BlockHeight, a.maxEntries)
			break
		}
	}

	if len(entries) == 0 {
		return Vote{}, false, nil
	}
	return Vote{Entries: entries, ReferenceHeight: props.BlockHeight}, true, nil
}

// MatchesAnyAddress reports whether addr is present in the candidate set,
// the filter primitive spec.md §4.9 names ("Filters logs/transactions
// against properties (deposit addresses, vault addresses, transaction
// ids)").
func MatchesAnyAddress(addr []byte, candidates [][]byte) bool {
	for _, c := range candidates {
		if string(c) == string(addr) {
			return true
		}
	}
	return false
}

// ValidateAmountAndSize implements the size/amount constraint
// original_source's btc.rs witness enforces before accepting a deposit
// ("Bitcoin transaction amount must be set and greater than 0"): a zero
// amount or a payload exceeding maxPayloadBytes is rejected.
func ValidateAmountAndSize(e Entry, maxPayloadBytes int) bool {
	if e.Amount == 0 {
		return false
	}
	if maxPayloadBytes > 0 && len(e.Payload) > maxPayloadBytes {
		return false
	}
	return true
}
