// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package schnorr_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chainbridge-relay/engine/common"
	"github.com/chainbridge-relay/engine/crypto"
	. "github.com/chainbridge-relay/engine/crypto/schnorr"
)

var ctx = []byte("ceremony-id-123")

func TestSchnorrProof(t *testing.T) {
	scheme := crypto.NewSecp256k1Scheme()
	idx := big.NewInt(1)
	u := common.GetRandomPositiveInt(scheme.Order())
	uG := scheme.ScalarBaseMult(u)

	proof, err := NewZKProof(scheme, u, uG, idx, ctx)
	assert.NoError(t, err)
	assert.True(t, proof.Alpha.IsOnCurve())
	assert.NotNil(t, proof.T)
}

func TestSchnorrProofVerify(t *testing.T) {
	scheme := crypto.NewSecp256k1Scheme()
	idx := big.NewInt(1)
	u := common.GetRandomPositiveInt(scheme.Order())
	X := scheme.ScalarBaseMult(u)

	proof, err := NewZKProof(scheme, u, X, idx, ctx)
	assert.NoError(t, err)
	assert.True(t, proof.Verify(scheme, X, idx, ctx))
}

func TestSchnorrProofVerifyBadX(t *testing.T) {
	scheme := crypto.NewSecp256k1Scheme()
	idx := big.NewInt(1)
	u := common.GetRandomPositiveInt(scheme.Order())
	u2 := common.GetRandomPositiveInt(scheme.Order())
	X := scheme.ScalarBaseMult(u)
	X2 := scheme.ScalarBaseMult(u2)

	proof, err := NewZKProof(scheme, u2, X2, idx, ctx)
	assert.NoError(t, err)
	assert.False(t, proof.Verify(scheme, X, idx, ctx))
}

func TestSchnorrProofVerifyBadIndex(t *testing.T) {
	scheme := crypto.NewSecp256k1Scheme()
	idx := big.NewInt(1)
	otherIdx := big.NewInt(2)
	u := common.GetRandomPositiveInt(scheme.Order())
	X := scheme.ScalarBaseMult(u)

	proof, err := NewZKProof(scheme, u, X, idx, ctx)
	assert.NoError(t, err)
	assert.False(t, proof.Verify(scheme, X, otherIdx, ctx))
}

func TestSchnorrProofVerifyBadContext(t *testing.T) {
	scheme := crypto.NewSecp256k1Scheme()
	idx := big.NewInt(1)
	u := common.GetRandomPositiveInt(scheme.Order())
	X := scheme.ScalarBaseMult(u)

	proof, err := NewZKProof(scheme, u, X, idx, ctx)
	assert.NoError(t, err)
	assert.False(t, proof.Verify(scheme, X, idx, []byte("different-ceremony")))
}
