// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package keygen implements the seven-stage distributed key generation
// ceremony (spec.md §4.3): HashComm, VerifyHash, CoeffComm, VerifyCoeffComm,
// SecretShare, Complaints, VerifyComplaints. It generalises the ceremony
// library's round-based keygen (keygen/round_1.go..round_4.go in the
// teacher tree) from GG18's Paillier-heavy protocol down to a Pedersen/
// Feldman VSS DKG suitable for FROST signing.
package keygen

import (
	"math/big"

	"github.com/chainbridge-relay/engine/ceremony"
	"github.com/chainbridge-relay/engine/crypto"
	"github.com/chainbridge-relay/engine/crypto/schnorr"
	"github.com/chainbridge-relay/engine/crypto/vss"
	"github.com/chainbridge-relay/engine/party"
)

// localTempData holds the working state a runner accumulates across stages,
// mirroring the teacher's localTempData struct (one field block threaded
// through every round via an embedded pointer).
type localTempData struct {
	poly        *crypto.Polynomial
	ourDecommit *ourDecommitment
	ourShares   map[int]*vss.Share // indexed by recipient party index

	hashCommits map[int]*big.Int // indexed by sender party index
	vs          map[int]vss.Vs
	proofs      map[int]*schnorr.ZKProof
	shares      map[int]*vss.Share // shares received, keyed by sender index

	complaints map[int][]int // accuser index -> accused indexes

	hashEchoesFrom  map[int]bool // echoer index -> stage2 echo received and checked
	coeffEchoesFrom map[int]bool // echoer index -> stage4 echo received and checked
}

type ourDecommitment struct {
	blinding *big.Int
	vs       vss.Vs
	proof    *schnorr.ZKProof
}

// base is embedded by every stage struct, mirroring the ceremony library's
// per-round base struct: it carries the immutable ceremony parameters plus
// the channels a stage uses to emit outbound broadcasts/private messages and
// (on the final stage) the finished result.
type base struct {
	params  *party.Params
	ctx     []byte // ceremony id, bound into every Schnorr challenge
	temp    *localTempData
	data    *KeygenResult
	out     chan<- ceremony.Message
	end     chan<- *KeygenResult
	reshare *ResharingContext // nil for a genesis ceremony
}

func (b *base) Params() *party.Params { return b.params }

func (b *base) WrapError(err error, culprits ...*party.ID) *ceremony.Error {
	return ceremony.NewError(err, "keygen", 0, b.params.PartyID(), culprits...)
}
