// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package crypto

import (
	"crypto/elliptic"
	"math/big"

	"github.com/decred/dcrd/dcrec/edwards/v2"

	"github.com/chainbridge-relay/engine/common"
)

// Ed25519Scheme signs for the Solana voter adapter (§4.1, §5.3). Curve
// arithmetic comes from decred/dcrd/dcrec/edwards/v2, the same dependency
// the ceremony library registers for its Ed25519 curve in tss/curve.go.
type Ed25519Scheme struct {
	curve elliptic.Curve
}

func NewEd25519Scheme() *Ed25519Scheme {
	return &Ed25519Scheme{curve: edwards.Edwards()}
}

func (s *Ed25519Scheme) Name() string { return "ed25519" }

func (s *Ed25519Scheme) Curve() elliptic.Curve { return s.curve }

func (s *Ed25519Scheme) Order() *big.Int {
	return new(big.Int).Set(s.curve.Params().N)
}

func (s *Ed25519Scheme) Generator() *Point {
	params := s.curve.Params()
	return NewPointNoCurveCheck(s.curve, params.Gx, params.Gy)
}

func (s *Ed25519Scheme) ScalarBaseMult(k *big.Int) *Point {
	return ScalarBaseMult(s.curve, k)
}

func (s *Ed25519Scheme) NewPoint(x, y *big.Int) (*Point, error) {
	return NewPoint(s.curve, x, y)
}

func (s *Ed25519Scheme) HashToScalar(digest []byte) *big.Int {
	return common.ChallengeScalar(s.Order(), new(big.Int).SetBytes(digest))
}

// IsCompatiblePubKey has no on-chain parity constraint for Ed25519; any
// non-identity aggregate key is usable.
func (s *Ed25519Scheme) IsCompatiblePubKey(y *Point) bool {
	return y != nil && !y.IsIdentity()
}

// EncodePubKey returns the 32-byte little-endian compressed point encoding
// Solana verifiers expect: Y with the sign of X folded into its top bit.
func (s *Ed25519Scheme) EncodePubKey(y *Point) []byte {
	yBytes := y.Y().Bytes()
	out := make([]byte, 32)
	// big.Int.Bytes() is big-endian; reverse into the little-endian wire form.
	for i, b := range yBytes {
		out[len(yBytes)-1-i] = b
	}
	if y.X().Bit(0) == 1 {
		out[31] |= 0x80
	}
	return out
}

func (s *Ed25519Scheme) PreparePayload(msg []byte) []byte {
	return common.Blake2b256(msg)
}
