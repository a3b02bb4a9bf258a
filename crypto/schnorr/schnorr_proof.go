// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package schnorr

import (
	"errors"
	"math/big"

	"github.com/chainbridge-relay/engine/common"
	"github.com/chainbridge-relay/engine/crypto"
)

// ZKProof is a Schnorr proof of knowledge of the discrete log x of X = G*x,
// generalised off the ceremony library's tss.EC()-bound ZKProof (GG18Spec
// Fig. 16) onto an explicit crypto.Scheme, and bound to a participant index
// and ceremony context per spec.md §3's challenge
// H(G*a0 || R || idx || ctx) so a proof collected in one ceremony can never
// be replayed into another or attributed to the wrong participant.
type ZKProof struct {
	Alpha *crypto.Point
	T     *big.Int
}

// NewZKProof proves knowledge of x given X = G*x, idx (the prover's party
// index) and ctx (the ceremony id, or any other domain-separating context
// bytes). Used during CoeffComm (spec.md §4.3) to prove knowledge of each
// party's zero-degree coefficient a_0.
func NewZKProof(scheme crypto.Scheme, x *big.Int, X *crypto.Point, idx *big.Int, ctx []byte) (*ZKProof, error) {
	if x == nil || X == nil || !X.ValidateBasic() {
		return nil, errors.New("ZKProof constructor received nil or invalid value(s)")
	}
	q := scheme.Order()

	a := common.GetRandomPositiveInt(q)
	alpha := scheme.ScalarBaseMult(a)

	c := challenge(scheme, X, alpha, idx, ctx)
	t := new(big.Int).Mul(c, x)
	t = common.ModInt(q).Add(a, t)

	return &ZKProof{Alpha: alpha, T: t}, nil
}

// Verify checks the proof against the claimed X, idx and ctx.
func (pf *ZKProof) Verify(scheme crypto.Scheme, X *crypto.Point, idx *big.Int, ctx []byte) bool {
	if pf == nil || !pf.ValidateBasic() {
		return false
	}
	c := challenge(scheme, X, pf.Alpha, idx, ctx)
	tG := scheme.ScalarBaseMult(pf.T)
	Xc := X.ScalarMult(c)
	aXc, err := pf.Alpha.Add(Xc)
	if err != nil {
		return false
	}
	return aXc.Equals(tG)
}

func (pf *ZKProof) ValidateBasic() bool {
	return pf != nil && pf.T != nil && pf.Alpha != nil
}

func challenge(scheme crypto.Scheme, X, alpha *crypto.Point, idx *big.Int, ctx []byte) *big.Int {
	digest := common.Blake2b256(
		X.Bytes(), alpha.Bytes(), idx.Bytes(), ctx,
	)
	return scheme.HashToScalar(digest)
}
