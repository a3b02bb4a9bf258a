// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package signing

import (
	"math/big"

	"github.com/chainbridge-relay/engine/crypto"
)

// SigningResult is the output of a completed FROST signing ceremony: the
// aggregated Schnorr signature (R, z) over the ceremony's payload, in the
// (R: point, z: scalar) shape spec.md §6 "Wire formats" requires.
type SigningResult struct {
	SchemeName crypto.SchemeName
	Payload    []byte
	R          *crypto.Point
	Z          *big.Int
}

// Bytes renders the signature the way a chain-specific verifier expects: the
// compressed R point followed by the scalar z, big-endian. Chain-specific
// encoders (out of scope per spec.md §1) may re-encode this further, e.g.
// into BIP-340's 64-byte (r_x, s) form.
func (r *SigningResult) Bytes() []byte {
	return append(r.R.Bytes(), r.Z.Bytes()...)
}
