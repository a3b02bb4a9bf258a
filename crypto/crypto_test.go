// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package crypto_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chainbridge-relay/engine/common"
	. "github.com/chainbridge-relay/engine/crypto"
)

func TestScalarBaseMultOnCurve(t *testing.T) {
	scheme := NewSecp256k1Scheme()
	k := big.NewInt(12345)
	p := scheme.ScalarBaseMult(k)
	assert.True(t, p.IsOnCurve())
	assert.False(t, p.IsIdentity())
}

func TestScalarBaseMultZeroIsIdentity(t *testing.T) {
	scheme := NewSecp256k1Scheme()
	p := scheme.ScalarBaseMult(big.NewInt(0))
	assert.True(t, p.IsIdentity())
}

func TestPointAddWithIdentity(t *testing.T) {
	scheme := NewSecp256k1Scheme()
	g := scheme.Generator()
	inf := Infinity(scheme.Curve())
	sum, err := g.Add(inf)
	assert.NoError(t, err)
	assert.True(t, sum.Equals(g))
}

func TestPolynomialEvaluateMatchesCommitment(t *testing.T) {
	scheme := NewSecp256k1Scheme()
	secret := big.NewInt(42)
	poly := SamplePolynomial(scheme, 3, secret)
	commitments := poly.Commitments()

	x := big.NewInt(7)
	fx := poly.Evaluate(x)
	expected := scheme.ScalarBaseMult(fx)

	actual, err := EvaluateCommitments(scheme, commitments, x)
	assert.NoError(t, err)
	assert.True(t, expected.Equals(actual))
}

func TestLagrangeReconstructsSecret(t *testing.T) {
	scheme := NewSecp256k1Scheme()
	secret := big.NewInt(777)
	threshold := 2
	poly := SamplePolynomial(scheme, threshold, secret)

	ids := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)}
	shares := make([]*big.Int, len(ids))
	for i, id := range ids {
		shares[i] = poly.Evaluate(id)
	}

	coeffs, err := LagrangeCoefficients(scheme, ids)
	assert.NoError(t, err)

	modQ := common.ModInt(scheme.Order())
	recon := big.NewInt(0)
	for i, id := range ids {
		term := modQ.Mul(shares[i], coeffs[id.String()])
		recon = modQ.Add(recon, term)
	}
	assert.Equal(t, 0, secret.Cmp(recon))
}

// TestPolynomialEvaluateKnownVector pins the exact arithmetic spec.md §8
// Scenario A's worked example relies on: f(x) = 4 + 5x + 2x^2, f(3) = 37.
func TestPolynomialEvaluateKnownVector(t *testing.T) {
	scheme := NewSecp256k1Scheme()
	poly := NewPolynomial(scheme, []*big.Int{big.NewInt(4), big.NewInt(5), big.NewInt(2)})
	assert.Equal(t, 0, big.NewInt(37).Cmp(poly.Evaluate(big.NewInt(3))))
}

func TestFlattenUnflattenPointsRoundTrip(t *testing.T) {
	scheme := NewSecp256k1Scheme()
	pts := []*Point{
		scheme.ScalarBaseMult(big.NewInt(1)),
		scheme.ScalarBaseMult(big.NewInt(2)),
		scheme.ScalarBaseMult(big.NewInt(3)),
	}
	flat, err := FlattenPoints(pts)
	assert.NoError(t, err)
	back, err := UnflattenPoints(scheme.Curve(), flat, true)
	assert.NoError(t, err)
	for i := range pts {
		assert.True(t, pts[i].Equals(back[i]))
	}
}
