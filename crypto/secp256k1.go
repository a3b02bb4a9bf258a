// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package crypto

import (
	"crypto/elliptic"
	"math/big"

	s256k1 "github.com/btcsuite/btcd/btcec/v2"

	"github.com/chainbridge-relay/engine/common"
)

// Secp256k1Scheme signs for the Bitcoin, Ethereum and Arbitrum voters (§4.1,
// §5.3). Curve and point arithmetic come from btcsuite/btcd/btcec/v2, the
// same dependency the ceremony library registers as its default curve in
// tss/curve.go.
type Secp256k1Scheme struct {
	curve elliptic.Curve
}

func NewSecp256k1Scheme() *Secp256k1Scheme {
	return &Secp256k1Scheme{curve: s256k1.S256()}
}

func (s *Secp256k1Scheme) Name() string { return "secp256k1" }

func (s *Secp256k1Scheme) Curve() elliptic.Curve { return s.curve }

func (s *Secp256k1Scheme) Order() *big.Int {
	return new(big.Int).Set(s.curve.Params().N)
}

func (s *Secp256k1Scheme) Generator() *Point {
	params := s.curve.Params()
	return NewPointNoCurveCheck(s.curve, params.Gx, params.Gy)
}

func (s *Secp256k1Scheme) ScalarBaseMult(k *big.Int) *Point {
	return ScalarBaseMult(s.curve, k)
}

func (s *Secp256k1Scheme) NewPoint(x, y *big.Int) (*Point, error) {
	return NewPoint(s.curve, x, y)
}

func (s *Secp256k1Scheme) HashToScalar(digest []byte) *big.Int {
	return common.ChallengeScalar(s.Order(), new(big.Int).SetBytes(digest))
}

// IsCompatiblePubKey enforces BIP-340 even-Y on the aggregate public key so
// the resulting group key is usable by Taproot/Schnorr verifiers on the
// destination chain without an extra parity bit. On failure keygen fails
// the ceremony with ReasonIncompatiblePubKey (see crypto.Scheme).
func (s *Secp256k1Scheme) IsCompatiblePubKey(y *Point) bool {
	if y == nil || y.IsIdentity() {
		return false
	}
	return y.Y().Bit(0) == 0
}

// EncodePubKey returns the 32-byte X-only encoding BIP-340 verifiers expect.
func (s *Secp256k1Scheme) EncodePubKey(y *Point) []byte {
	x := y.X().Bytes()
	out := make([]byte, 32)
	copy(out[32-len(x):], x)
	return out
}

// PreparePayload hashes an arbitrary-length message down to the 32-byte
// digest a Schnorr/FROST signature is computed over.
func (s *Secp256k1Scheme) PreparePayload(msg []byte) []byte {
	return common.Blake2b256(msg)
}
