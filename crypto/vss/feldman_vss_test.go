// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package vss_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chainbridge-relay/engine/common"
	"github.com/chainbridge-relay/engine/crypto"
	. "github.com/chainbridge-relay/engine/crypto/vss"
)

func TestCheckIndexesDup(t *testing.T) {
	scheme := crypto.NewSecp256k1Scheme()
	indexes := make([]*big.Int, 0)
	for i := 0; i < 10; i++ {
		indexes = append(indexes, common.GetRandomPositiveInt(scheme.Order()))
	}
	_, e := CheckIndexes(scheme, indexes)
	assert.NoError(t, e)

	indexes = append(indexes, big.NewInt(999))
	indexes = append(indexes, big.NewInt(999))
	_, e = CheckIndexes(scheme, indexes)
	assert.Error(t, e)
}

func TestCheckIndexesZero(t *testing.T) {
	scheme := crypto.NewSecp256k1Scheme()
	indexes := make([]*big.Int, 0)
	for i := 0; i < 10; i++ {
		indexes = append(indexes, common.GetRandomPositiveInt(scheme.Order()))
	}
	_, e := CheckIndexes(scheme, indexes)
	assert.NoError(t, e)

	indexes = append(indexes, scheme.Order())
	_, e = CheckIndexes(scheme, indexes)
	assert.Error(t, e)
}

func TestCreate(t *testing.T) {
	scheme := crypto.NewSecp256k1Scheme()
	num, threshold := 5, 3

	secret := common.GetRandomPositiveInt(scheme.Order())

	ids := make([]*big.Int, 0)
	for i := 0; i < num; i++ {
		ids = append(ids, common.GetRandomPositiveInt(scheme.Order()))
	}

	vs, _, err := Create(scheme, threshold, secret, ids)
	assert.Nil(t, err)

	assert.Equal(t, threshold+1, len(vs))

	for _, pg := range vs {
		assert.NotZero(t, pg.X())
		assert.True(t, pg.IsOnCurve())
	}
}

func TestVerify(t *testing.T) {
	scheme := crypto.NewSecp256k1Scheme()
	num, threshold := 5, 3

	secret := common.GetRandomPositiveInt(scheme.Order())

	ids := make([]*big.Int, 0)
	for i := 0; i < num; i++ {
		ids = append(ids, common.GetRandomPositiveInt(scheme.Order()))
	}

	vs, shares, err := Create(scheme, threshold, secret, ids)
	assert.NoError(t, err)

	for i := 0; i < num; i++ {
		assert.True(t, shares[i].Verify(scheme, threshold, vs))
	}
}

func TestReconstruct(t *testing.T) {
	scheme := crypto.NewSecp256k1Scheme()
	num, threshold := 5, 3

	secret := common.GetRandomPositiveInt(scheme.Order())

	ids := make([]*big.Int, 0)
	for i := 0; i < num; i++ {
		ids = append(ids, common.GetRandomPositiveInt(scheme.Order()))
	}

	_, shares, err := Create(scheme, threshold, secret, ids)
	assert.NoError(t, err)

	secret2, err2 := shares[:threshold-1].ReConstruct(scheme)
	assert.Error(t, err2) // not enough shares to satisfy the threshold
	assert.Nil(t, secret2)

	secret3, err3 := shares[:threshold+1].ReConstruct(scheme)
	assert.NoError(t, err3)
	assert.NotNil(t, secret3)

	secret4, err4 := shares[:num].ReConstruct(scheme)
	assert.NoError(t, err4)
	assert.Equal(t, 0, secret.Cmp(secret4))
}
