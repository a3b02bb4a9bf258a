// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package witness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockWitnesserOpensPrewitnessOnProgress(t *testing.T) {
	bw := NewBlockWitnesser[string](PolicyPrewitnessThenFinalise, 2, 10, 1, func(h uint64) string { return "props" })

	events := bw.OnProgress(ChainProgress{Kind: ProgressContinuous, NewHeight: 3})
	require.NotEmpty(t, events)
	for _, e := range events {
		assert.Equal(t, ElectionPrewitness, e.Type)
	}

	ongoing := bw.Ongoing()
	assert.Contains(t, ongoing, uint64(3))

	assert.False(t, bw.ReadyToFinalise(3, 3))
	assert.True(t, bw.ReadyToFinalise(5, 3))
}

func TestBlockWitnesserFinaliseIsExactlyOncePerHeight(t *testing.T) {
	bw := NewBlockWitnesser[string](PolicyFinaliseOnly, 0, 10, 0, func(h uint64) string { return "props" })
	bw.OnProgress(ChainProgress{Kind: ProgressContinuous, NewHeight: 5})

	_, err := bw.Finalise(5)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), bw.ProcessedUpTo())

	_, err = bw.Finalise(5)
	assert.Error(t, err, "finalising the same height twice must be rejected")

	_, err = bw.Finalise(3)
	assert.Error(t, err, "finalising a height below processed_up_to must be rejected")
}

func TestBlockWitnesserRespectsMaxOngoingElections(t *testing.T) {
	bw := NewBlockWitnesser[string](PolicyFinaliseOnly, 0, 3, 0, func(h uint64) string { return "props" })
	bw.OnProgress(ChainProgress{Kind: ProgressContinuous, NewHeight: 10})

	assert.LessOrEqual(t, len(bw.Ongoing()), 3)
}

func TestBlockWitnesserMaxOptimisticElectionsAllowsOpeningAboveTip(t *testing.T) {
	bw := NewBlockWitnesser[string](PolicyFinaliseOnly, 0, 10, 2, func(h uint64) string { return "props" })
	bw.OnProgress(ChainProgress{Kind: ProgressContinuous, NewHeight: 5})

	heights := bw.OngoingHeights()
	require.NotEmpty(t, heights)
	maxOpened := heights[len(heights)-1]
	assert.LessOrEqual(t, maxOpened, uint64(5+2))
	assert.Greater(t, maxOpened, uint64(5))
}

func TestBlockWitnesserReorgReopensRange(t *testing.T) {
	bw := NewBlockWitnesser[string](PolicyFinaliseOnly, 0, 10, 0, func(h uint64) string { return "props" })
	bw.OnProgress(ChainProgress{Kind: ProgressContinuous, NewHeight: 5})
	_, err := bw.Finalise(5)
	require.NoError(t, err)

	bw.OnProgress(ChainProgress{Kind: ProgressReorg, ReorgFrom: 4, ReorgTo: 6, NewTip: 6})
	ongoing := bw.Ongoing()
	assert.Contains(t, ongoing, uint64(4))
	assert.Contains(t, ongoing, uint64(5))
	assert.Contains(t, ongoing, uint64(6))
}
