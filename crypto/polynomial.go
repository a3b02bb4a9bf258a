// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package crypto

import (
	"math/big"

	"github.com/chainbridge-relay/engine/common"
)

// Polynomial is a secret-sharing polynomial f(x) = a0 + a1*x + ... + at*x^t
// over a Scheme's scalar field, generalising the ceremony library's inline
// samplePolynomial/evaluatePolynomial helpers (crypto/vss/feldman_vss.go) so
// resharing (spec.md §4.4) can also evaluate at future participant indexes
// without duplicating the Horner-form code.
type Polynomial struct {
	scheme Scheme
	coeffs []*big.Int // coeffs[0] is the constant term (the shared secret)
}

// SamplePolynomial draws a degree-threshold polynomial whose constant term
// is the given secret, with all other coefficients uniform random in
// [0, Order).
func SamplePolynomial(scheme Scheme, threshold int, secret *big.Int) *Polynomial {
	q := scheme.Order()
	coeffs := make([]*big.Int, threshold+1)
	coeffs[0] = secret
	for i := 1; i <= threshold; i++ {
		coeffs[i] = common.GetRandomPositiveInt(q)
	}
	return &Polynomial{scheme: scheme, coeffs: coeffs}
}

// NewPolynomial wraps a pre-existing coefficient list, e.g. reconstructed
// from received VSS commitments.
func NewPolynomial(scheme Scheme, coeffs []*big.Int) *Polynomial {
	return &Polynomial{scheme: scheme, coeffs: coeffs}
}

func (p *Polynomial) Threshold() int { return len(p.coeffs) - 1 }

func (p *Polynomial) Coefficient(i int) *big.Int { return p.coeffs[i] }

// Evaluate computes f(x) in Horner form, mod the scheme's scalar order.
func (p *Polynomial) Evaluate(x *big.Int) *big.Int {
	modQ := common.ModInt(p.scheme.Order())
	result := new(big.Int).Set(p.coeffs[len(p.coeffs)-1])
	for i := len(p.coeffs) - 2; i >= 0; i-- {
		result = modQ.Add(modQ.Mul(result, x), p.coeffs[i])
	}
	return result
}

// Commitments returns the Feldman commitment vector v_i = G*a_i for every
// coefficient, published during the CoeffComm stage (spec.md §4.3).
func (p *Polynomial) Commitments() []*Point {
	out := make([]*Point, len(p.coeffs))
	for i, a := range p.coeffs {
		out[i] = p.scheme.ScalarBaseMult(a)
	}
	return out
}

// EvaluateCommitments evaluates the published commitment vector at x in the
// exponent, i.e. computes G*f(x) from v_0..v_t without learning f(x) itself.
// Used to verify a received secret share (vss.Share.Verify, called from
// keygen's Complaints stage) and to derive every party's public key share
// in keygen's final stage.
func EvaluateCommitments(scheme Scheme, commitments []*Point, x *big.Int) (*Point, error) {
	modQ := common.ModInt(scheme.Order())
	acc := commitments[0]
	xPow := big.NewInt(1)
	var err error
	for j := 1; j < len(commitments); j++ {
		xPow = modQ.Mul(xPow, x)
		term := commitments[j].ScalarMult(xPow)
		acc, err = acc.Add(term)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}
