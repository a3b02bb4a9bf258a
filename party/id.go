// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package party generalises the ceremony library's tss.PartyID/PeerContext
// (tss/party_id.go, tss/peers.go) onto a plain, non-protobuf wire
// representation: the teacher's PartyID embedded a protobuf-generated
// MessageWrapper_PartyID so it could be marshalled straight into a
// MessageWrapper Any field. Messages here are gob-encoded instead (see
// ceremony/message.go), so ID carries its fields directly.
package party

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/chainbridge-relay/engine/common"
)

type (
	// ID represents a participant in a ceremony. Id is a unique string
	// identifying the participant's long-lived identity (e.g. a node's
	// libp2p peer ID or validator account address); Moniker is a
	// free-form display label; Key is the participant's identity key, by
	// which SortIDs orders participants; Index is its ceremony-scoped
	// numeric index, used as its VSS share index.
	ID struct {
		Id      string `json:"id"`
		Moniker string `json:"moniker"`
		Key     []byte `json:"key"`
		Index   int    `json:"index"` // not known until sorted; -1 beforehand
	}

	UnsortedIDs []*ID
	SortedIDs   []*ID
)

func NewID(id, moniker string, key *big.Int) *ID {
	return &ID{
		Id:      id,
		Moniker: moniker,
		Key:     key.Bytes(),
		Index:   -1,
	}
}

func (pid *ID) KeyInt() *big.Int {
	return new(big.Int).SetBytes(pid.Key)
}

func (pid *ID) ValidateBasic() bool {
	return pid != nil && pid.Key != nil && len(pid.Key) > 0
}

func (pid *ID) String() string {
	return fmt.Sprintf("{%d,%s}", pid.Index, pid.Moniker)
}

// SortIDs sorts a list of *ID by key ascending, then assigns indexes
// starting at startAt (1 by default). The index assigned here becomes the
// VSS share index used throughout keygen/signing.
func SortIDs(ids UnsortedIDs, startAt ...int) SortedIDs {
	sorted := make(SortedIDs, len(ids))
	copy(sorted, ids)
	sort.Sort(sorted)
	frm := 1
	if len(startAt) > 0 {
		frm = startAt[0]
	}
	for i, id := range sorted {
		id.Index = i + frm
	}
	return sorted
}

// GenerateTestIDs generates a list of mock IDs for tests, with a
// deterministic key ordering.
func GenerateTestIDs(count int, startAt ...int) SortedIDs {
	ids := make(UnsortedIDs, 0, count)
	key := common.MustGetRandomInt(256)
	frm, i := 0, 0
	if len(startAt) > 0 {
		frm, i = startAt[0], startAt[0]
	}
	for ; i < count+frm; i++ {
		ids = append(ids, &ID{
			Id:      fmt.Sprintf("%d", i+1),
			Moniker: fmt.Sprintf("P[%d]", i+1),
			Key:     new(big.Int).Sub(key, big.NewInt(int64(count)-int64(i))).Bytes(),
			Index:   i,
		})
	}
	return SortIDs(ids, startAt...)
}

func (sids SortedIDs) Keys() []*big.Int {
	ids := make([]*big.Int, len(sids))
	for i, pid := range sids {
		ids[i] = pid.KeyInt()
	}
	return ids
}

func (sids SortedIDs) ToUnsorted() UnsortedIDs { return UnsortedIDs(sids) }

func (sids SortedIDs) FindByKey(key *big.Int) *ID {
	for _, pid := range sids {
		if pid.KeyInt().Cmp(key) == 0 {
			return pid
		}
	}
	return nil
}

func (sids SortedIDs) Exclude(exclude *ID) SortedIDs {
	out := make(SortedIDs, 0, len(sids))
	for _, pid := range sids {
		if pid.KeyInt().Cmp(exclude.KeyInt()) == 0 {
			continue
		}
		out = append(out, pid)
	}
	return out
}

func (sids SortedIDs) Len() int           { return len(sids) }
func (sids SortedIDs) Less(a, b int) bool { return sids[a].KeyInt().Cmp(sids[b].KeyInt()) <= 0 }
func (sids SortedIDs) Swap(a, b int)      { sids[a], sids[b] = sids[b], sids[a] }
