// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package signing implements the four-stage FROST-style threshold signing
// ceremony (spec.md §4.4): Commit, VerifyCommit, LocalSig, VerifyLocalSig.
// It replaces the ceremony library's GG18/MtA-based signing/ package, which
// needs a Paillier modulus this scheme has none of, with FROST's
// commit-then-combine construction, while keeping the same round-lifecycle
// idiom keygen already generalises from the teacher.
package signing

import (
	"math/big"

	"github.com/chainbridge-relay/engine/ceremony"
	"github.com/chainbridge-relay/engine/crypto"
	"github.com/chainbridge-relay/engine/keygen"
	"github.com/chainbridge-relay/engine/party"
)

// commitPair is one signer's published nonce commitments (D_i = G*d_i,
// E_i = G*e_i), the FROST round-1 broadcast (spec.md §4.4 stage 1).
type commitPair struct {
	D *crypto.Point
	E *crypto.Point
}

// localTempData holds the working state a signing runner accumulates across
// its four stages, mirroring keygen's localTempData.
type localTempData struct {
	d, e *big.Int // this party's own nonces, zeroised once the local sig is computed

	commits map[int]*commitPair // sender index -> (D_i, E_i), includes self

	rho       map[int]*big.Int // sender index -> binding value rho_i
	groupComm *crypto.Point    // R = sum_j (D_j + rho_j*E_j)
	challenge *big.Int         // c = H(R, Y, payload)

	zs map[int]*big.Int // sender index -> local signature share z_i, includes self

	commitEchoesFrom map[int]bool // echoer index -> stage2 echo received and checked
	sigEchoesFrom    map[int]bool // echoer index -> stage4 echo received and checked
}

// base is embedded by every stage struct, mirroring keygen's base: the
// immutable ceremony parameters, the key material from a completed keygen
// ceremony, the message being signed, and the channels used to emit
// outbound messages and the finished result.
type base struct {
	params  *party.Params
	ctx     []byte // ceremony id, bound into the FROST binding-value hash
	keyData *keygen.KeygenResult
	payload []byte // the scheme-prepared signing payload (spec.md §4.1 PreparePayload)
	temp    *localTempData
	data    *SigningResult
	out     chan<- ceremony.Message
	end     chan<- *SigningResult
}

func (b *base) Params() *party.Params { return b.params }

func (b *base) WrapError(err error, culprits ...*party.ID) *ceremony.Error {
	return ceremony.NewError(err, "signing", 0, b.params.PartyID(), culprits...)
}

// signerIndexes returns the big.Int party indexes of the signing subset
// (params.Parties() is exactly that t+1-or-larger subset for this
// ceremony), used for Lagrange coefficient computation.
func (b *base) signerIndexes() []*big.Int {
	ids := b.params.Parties().IDs()
	out := make([]*big.Int, len(ids))
	for i, pid := range ids {
		out[i] = big.NewInt(int64(pid.Index))
	}
	return out
}
