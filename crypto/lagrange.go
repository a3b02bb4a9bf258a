// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package crypto

import (
	"errors"
	"math/big"

	"github.com/chainbridge-relay/engine/common"
)

// LagrangeCoefficient computes the Lagrange basis coefficient l_i(0) for
// participant index id within the index set ids, i.e. the weight that
// scales party i's share when reconstructing (or combining signature
// shares) at x=0. This generalises the inline product loop in
// crypto/vss/feldman_vss.go's Shares.ReConstruct into a standalone
// primitive shared by signing's response aggregation (spec.md §4.6) as well
// as VSS reconstruction.
func LagrangeCoefficient(scheme Scheme, id *big.Int, ids []*big.Int) (*big.Int, error) {
	modQ := common.ModInt(scheme.Order())
	num := big.NewInt(1)
	for _, xj := range ids {
		if xj.Cmp(id) == 0 {
			continue
		}
		num = modQ.Mul(num, xj)
	}
	den := big.NewInt(1)
	for _, xj := range ids {
		if xj.Cmp(id) == 0 {
			continue
		}
		diff := modQ.Sub(xj, id)
		if diff.Sign() == 0 {
			return nil, errors.New("crypto.LagrangeCoefficient: duplicate participant index")
		}
		den = modQ.Mul(den, diff)
	}
	denInv := modQ.ModInverse(den)
	return modQ.Mul(num, denInv), nil
}

// LagrangeCoefficients computes l_i(0) for every id in ids in one pass.
func LagrangeCoefficients(scheme Scheme, ids []*big.Int) (map[string]*big.Int, error) {
	out := make(map[string]*big.Int, len(ids))
	for _, id := range ids {
		l, err := LagrangeCoefficient(scheme, id, ids)
		if err != nil {
			return nil, err
		}
		out[id.String()] = l
	}
	return out, nil
}
