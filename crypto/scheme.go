// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package crypto

import (
	"crypto/elliptic"
	"math/big"
)

// Scheme is the cryptographic capability set described in spec.md §4.1/§6:
// a scalar field with constant-time arithmetic (delegated to math/big and
// crypto/elliptic's constant-time scalar multiplication), a group with
// serialisable compressed points, challenge hashing, a pubkey-compatibility
// predicate, and a signing-payload encoder. DKG and signing run entirely
// against this interface so the same ceremony code drives secp256k1
// (Bitcoin/Ethereum/Arbitrum) and Edwards25519 (Solana) ceremonies.
type Scheme interface {
	// Name identifies the scheme, e.g. "secp256k1" or "ed25519".
	Name() string

	// Curve returns the underlying curve implementation.
	Curve() elliptic.Curve

	// Order returns the scalar field order (the curve's group order N).
	Order() *big.Int

	// Generator returns the curve's base point G.
	Generator() *Point

	// ScalarBaseMult computes G·k.
	ScalarBaseMult(k *big.Int) *Point

	// NewPoint validates and constructs a Point from raw coordinates.
	NewPoint(x, y *big.Int) (*Point, error)

	// HashToScalar reduces an arbitrary-length digest to a scalar in
	// [0, Order), used for ZKP/FROST challenges.
	HashToScalar(digest []byte) *big.Int

	// IsCompatiblePubKey reports whether the aggregate public key Y
	// satisfies the scheme's on-chain compatibility predicate (e.g.
	// BIP-340 even-Y for secp256k1). When this fails, keygen's final stage
	// fails the ceremony with ReasonIncompatiblePubKey; the keygen package
	// does not re-run the ceremony itself.
	IsCompatiblePubKey(y *Point) bool

	// EncodePubKey renders the aggregate public key into the byte
	// encoding the destination chain expects on-chain.
	EncodePubKey(y *Point) []byte

	// PreparePayload converts a caller-supplied message into the
	// scheme-specific signing payload (e.g. a 32-byte digest).
	PreparePayload(msg []byte) []byte
}
