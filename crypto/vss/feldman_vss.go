// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Feldman VSS, based on Paul Feldman, 1987., A practical scheme for non-interactive verifiable secret sharing.
// In Foundations of Computer Science, 1987., 28th Annual Symposium on. IEEE, 427–43
//
// Generalised off the ceremony library's elliptic.Curve-bound feldman_vss.go
// onto the crypto.Scheme/crypto.Polynomial abstractions so the same VSS
// machinery drives every registered signature scheme, and extended with
// future-index evaluation for resharing (spec.md §4.4): a new committee
// member's share commitment can be derived from the old committee's published
// coefficient commitments without any old member recomputing or re-publishing.
package vss

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/chainbridge-relay/engine/common"
	"github.com/chainbridge-relay/engine/crypto"
)

type (
	Share struct {
		Threshold int
		ID,       // xi
		Share *big.Int // Sigma i
	}

	Vs []*crypto.Point // v0..vt

	Shares []*Share
)

var ErrNumSharesBelowThreshold = fmt.Errorf("not enough shares to satisfy the threshold")

// CheckIndexes validates share indexes for Shamir's Secret Sharing, erroring
// on a zero index or duplicate index.
func CheckIndexes(scheme crypto.Scheme, indexes []*big.Int) ([]*big.Int, error) {
	q := scheme.Order()
	visited := make(map[string]struct{})
	for _, v := range indexes {
		vMod := new(big.Int).Mod(v, q)
		if vMod.Sign() == 0 {
			return nil, errors.New("party index should not be 0")
		}
		vModStr := vMod.String()
		if _, ok := visited[vModStr]; ok {
			return nil, fmt.Errorf("duplicate indexes %s", vModStr)
		}
		visited[vModStr] = struct{}{}
	}
	return indexes, nil
}

// Create returns a new array of secret shares created by Shamir's Secret
// Sharing Algorithm, requiring a minimum number of shares to recreate, of
// length shares, from the input secret.
func Create(scheme crypto.Scheme, threshold int, secret *big.Int, indexes []*big.Int) (Vs, Shares, error) {
	if secret == nil || indexes == nil {
		return nil, nil, fmt.Errorf("vss secret or indexes == nil: %v %v", secret, indexes)
	}
	if threshold < 1 {
		return nil, nil, errors.New("vss threshold < 1")
	}

	ids, err := CheckIndexes(scheme, indexes)
	if err != nil {
		return nil, nil, err
	}

	num := len(indexes)
	if num < threshold {
		return nil, nil, ErrNumSharesBelowThreshold
	}

	poly := crypto.SamplePolynomial(scheme, threshold, secret)
	v := Vs(poly.Commitments())

	shares := make(Shares, num)
	for i := 0; i < num; i++ {
		share := poly.Evaluate(ids[i])
		shares[i] = &Share{Threshold: threshold, ID: ids[i], Share: share}
	}
	return v, shares, nil
}

// Verify checks that share is consistent with the published commitment
// vector vs, evaluating vs in the exponent at the share's index.
func (share *Share) Verify(scheme crypto.Scheme, threshold int, vs Vs) bool {
	if share.Threshold != threshold || vs == nil {
		return false
	}
	v, err := crypto.EvaluateCommitments(scheme, vs, share.ID)
	if err != nil {
		return false
	}
	sigmaGi := scheme.ScalarBaseMult(share.Share)
	return sigmaGi.Equals(v)
}

// ReConstruct recovers the shared secret from at least Threshold+1 shares
// (the points a degree-Threshold polynomial needs) via Lagrange
// interpolation at x=0.
func (shares Shares) ReConstruct(scheme crypto.Scheme) (secret *big.Int, err error) {
	if shares != nil && shares[0].Threshold >= len(shares) {
		return nil, ErrNumSharesBelowThreshold
	}
	modN := common.ModInt(scheme.Order())

	ids := make([]*big.Int, len(shares))
	for i, share := range shares {
		ids[i] = share.ID
	}
	coeffs, err := crypto.LagrangeCoefficients(scheme, ids)
	if err != nil {
		return nil, err
	}

	secret = big.NewInt(0)
	for _, share := range shares {
		term := modN.Mul(share.Share, coeffs[share.ID.String()])
		secret = modN.Add(secret, term)
	}
	return secret, nil
}

// EvaluateAt evaluates the sharing polynomial poly at a new, previously
// unseen index and returns the result as a Share, which verifies against
// poly's Feldman commitments. Used when
// resharing introduces an incoming committee member whose index wasn't one
// of the original sharing indexes (spec.md §4.4).
func EvaluateAt(scheme crypto.Scheme, poly *crypto.Polynomial, id *big.Int) *Share {
	return &Share{Threshold: poly.Threshold(), ID: id, Share: poly.Evaluate(id)}
}
